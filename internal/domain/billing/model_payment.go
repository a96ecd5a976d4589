package billing

import (
	"encoding/json"

	"replyify-site/internal/domain/plans"
)

// SubscriptionStatus is the backend's view of a user's plan.
type SubscriptionStatus struct {
	ExternalUserID string     `json:"externalUserId"`
	Plan           plans.Plan `json:"plan"`
	IsPaying       bool       `json:"isPaying"`
	Exists         bool       `json:"exists"`
}

// DefaultStatus is what the site shows when the backend lookup fails.
func DefaultStatus(externalUserID string) SubscriptionStatus {
	return SubscriptionStatus{
		ExternalUserID: externalUserID,
		Plan:           plans.Default,
	}
}

// PaymentRecord is whatever the backend returned for a payment write.
// The site passes it through untouched.
type PaymentRecord = json.RawMessage

// SyncedUser is the backend's acknowledgement of a sign-in sync.
type SyncedUser struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
