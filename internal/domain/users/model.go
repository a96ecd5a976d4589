package users

// User is the signed-in identity as reported by the identity provider.
// The site keeps no copy of it beyond the session token.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// DisplayName falls back to "creator" when the provider gave no first name.
func (u User) DisplayName() string {
	if u.FirstName == "" {
		return "creator"
	}
	return u.FirstName
}

// AvatarAlt is the alt text for the header avatar.
func (u User) AvatarAlt() string {
	if u.FirstName == "" {
		return "User"
	}
	return u.FirstName
}
