// Package session manages the launcher's signed-in account on top of the
// exchange pipeline and a credential store.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/codes"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/internal/store"
	"github.com/coredex-source/Cryovex-Launcher/log"
	"github.com/coredex-source/Cryovex-Launcher/tracing"
)

// ErrNotLoggedIn is returned by Current and Logout when no account is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// Runner executes the exchange. *exchange.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, code exchange.AuthorizationCode, opts ...exchange.RunOption) (*exchange.Result, error)
}

// Account is the stored account without its tokens.
type Account struct {
	Username  string    `json:"username" yaml:"username"`
	UUID      string    `json:"uuid" yaml:"uuid"`
	SavedAt   time.Time `json:"saved_at" yaml:"saved_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"` // zero when the token carries no exp claim
	Expired   bool      `json:"expired" yaml:"expired"`
}

// Manager signs accounts in and out.
type Manager struct {
	runner Runner
	store  store.Store
	logger log.Logger
	now    func() time.Time
}

func NewManager(runner Runner, st store.Store, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		runner: runner,
		store:  st,
		logger: logger.With(map[string]interface{}{"component": "session"}),
		now:    time.Now,
	}
}

// Login redeems code and stores the resulting credentials.
func (m *Manager) Login(ctx context.Context, code exchange.AuthorizationCode, opts ...exchange.RunOption) (*Account, error) {
	ctx, span := tracing.Tracer.Start(ctx, "session.Login")
	defer span.End()

	result, err := m.runner.Run(ctx, code, opts...)
	if err != nil {
		span.SetStatus(codes.Error, "exchange failed")
		return nil, err
	}

	creds := store.FromResult(*result, m.now())
	if err := m.store.Save(ctx, creds); err != nil {
		span.SetStatus(codes.Error, "save failed")
		m.logger.Error(ctx, "failed to save credentials", err)
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	m.logger.Info(ctx, "account signed in", map[string]interface{}{"username": creds.Username, "uuid": creds.UUID})
	return m.account(creds), nil
}

// Current returns the stored account.
func (m *Manager) Current(ctx context.Context) (*Account, error) {
	creds, err := m.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return m.account(*creds), nil
}

// Logout removes the stored account.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Delete(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotLoggedIn
	}
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	m.logger.Info(ctx, "account signed out")
	return nil
}

func (m *Manager) account(creds store.Credentials) *Account {
	acc := &Account{
		Username: creds.Username,
		UUID:     creds.UUID,
		SavedAt:  creds.SavedAt,
	}
	if exp, ok := TokenExpiry(creds.AccessToken); ok {
		acc.ExpiresAt = exp
		acc.Expired = !m.now().Before(exp)
	}
	return acc
}

// TokenExpiry reads the exp claim of a JWT access token. The signature is not
// verified; the value is only used for display.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time.UTC(), true
}
