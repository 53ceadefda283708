package models

import (
	"time"
)

// IssuedToken is a credential value handed to the client together
// with the moment it stops being valid
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// AuthResult is the outcome of a login or refresh attempt.
//
// Unknown email, wrong password and inactive refresh tokens are expected
// user-facing states, so they are reported here with Authenticated=false
// and a message instead of an error.
type AuthResult struct {
	Authenticated bool
	Message       string

	Username string
	Email    string
	Roles    []string

	AccessToken  IssuedToken
	RefreshToken IssuedToken
}
