// Package domain contains the core concepts of the relay:
// identities, messages and presence. No runtime, network, or
// storage logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Identity is a uniquely named party known to the system.
// It is created by the registration flow and read-only to the relay.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary is the credential-free view of an Identity, the only shape
// that ever crosses the realtime channel or the HTTP boundary.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i Identity) Summary() Summary {
	return Summary{
		ID:        i.ID,
		Username:  i.Username,
		Email:     i.Email,
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
	}
}
