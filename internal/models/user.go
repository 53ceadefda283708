package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	Email          string
	FirstName      string
	LastName       string
	HashedPassword string
}

// Claim is a single key/value assertion held by the user directory.
// Custom claims are carried into access tokens as is.
type Claim struct {
	Key   string
	Value string
}
