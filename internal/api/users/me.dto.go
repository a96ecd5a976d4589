package users

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName"`
	DisplayName       string `json:"displayName"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan     PlanDTO `json:"plan"`
	IsPaying bool    `json:"isPaying"`
	Exists   bool    `json:"exists"`
}

type PlanDTO struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Price string `json:"price"`
}
