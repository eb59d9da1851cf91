// Package store persists the credentials produced by a successful exchange.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
)

// ErrNotFound is returned when no credentials are stored.
var ErrNotFound = errors.New("no stored credentials")

// Credentials is the persisted account, in the auth.json shape.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Username     string    `json:"username"`
	UUID         string    `json:"uuid"`
	SavedAt      time.Time `json:"saved_at"`
}

// FromResult converts a pipeline result into a record saved at now.
func FromResult(r exchange.Result, now time.Time) Credentials {
	return Credentials{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Username:     r.Username,
		UUID:         r.UUID,
		SavedAt:      now.UTC(),
	}
}

// Store keeps a single account.
//
//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=mock/mock_$GOFILE -package=mock_$GOPACKAGE Store
type Store interface {
	Save(ctx context.Context, creds Credentials) error
	// Load returns ErrNotFound when nothing is stored.
	Load(ctx context.Context) (*Credentials, error)
	// Delete returns ErrNotFound when nothing is stored.
	Delete(ctx context.Context) error
	Close() error
}
