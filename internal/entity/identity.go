package entity

import "strings"

// Identity is the signed-in user, derived from the authentication session.
// A nil *Identity means local-only mode.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// NewIdentity builds an identity from session claims, defaulting the
// display name to the email local part.
func NewIdentity(id, email string) Identity {
	name := "User"
	if email != "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}
	return Identity{ID: id, Email: email, DisplayName: name}
}
