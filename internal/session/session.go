// Package session tracks which shopper is logged in on this device.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	"github.com/Catalina-leal/Huertohogarapp/internal/stream"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
	"github.com/Catalina-leal/Huertohogarapp/pkg/validator"
)

// Preference keys.
const (
	KeyLoggedIn  = "is_logged_in"
	KeyUserEmail = "user_email"
)

// State is the login state of the device.
type State struct {
	LoggedIn bool   `json:"logged_in"`
	Email    string `json:"email,omitempty"`
}

// Provider reads and writes the login state through the preferences store.
type Provider struct {
	prefs  repository.PreferencesRepository
	hub    *stream.Hub[State]
	logger *slog.Logger
}

// NewProvider creates a session provider.
func NewProvider(prefs repository.PreferencesRepository, logger *slog.Logger) *Provider {
	return &Provider{
		prefs:  prefs,
		hub:    stream.NewHub[State](),
		logger: logger,
	}
}

// Current returns the stored login state. Storage errors are returned.
func (p *Provider) Current(ctx context.Context) (State, error) {
	raw, ok, err := p.prefs.Get(ctx, KeyLoggedIn)
	if err != nil {
		return State{}, fmt.Errorf("read login flag: %w", err)
	}
	if !ok {
		return State{}, nil
	}
	loggedIn, _ := strconv.ParseBool(raw)
	if !loggedIn {
		return State{}, nil
	}

	email, ok, err := p.prefs.Get(ctx, KeyUserEmail)
	if err != nil {
		return State{}, fmt.Errorf("read user email: %w", err)
	}
	if !ok || email == "" {
		return State{}, nil
	}
	return State{LoggedIn: true, Email: email}, nil
}

// CurrentUserEmail returns the logged-in shopper's email. A storage error is
// logged and reported as nobody logged in.
func (p *Provider) CurrentUserEmail(ctx context.Context) (string, bool) {
	st, err := p.Current(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to read session",
			slog.String("error", err.Error()),
		)
		return "", false
	}
	return st.Email, st.LoggedIn
}

// SetLoggedIn records email as the current shopper.
func (p *Provider) SetLoggedIn(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validator.Var(email, "required,email"); err != nil {
		return apperrors.InvalidInput("a valid email is required")
	}

	if err := p.prefs.Set(ctx, KeyUserEmail, email); err != nil {
		return fmt.Errorf("store user email: %w", err)
	}
	if err := p.prefs.Set(ctx, KeyLoggedIn, "true"); err != nil {
		return fmt.Errorf("store login flag: %w", err)
	}

	p.hub.Publish(State{LoggedIn: true, Email: email})
	p.logger.InfoContext(ctx, "shopper logged in", slog.String("user_email", email))
	return nil
}

// ClearLogin logs the shopper out.
func (p *Provider) ClearLogin(ctx context.Context) error {
	if err := p.prefs.Delete(ctx, KeyLoggedIn, KeyUserEmail); err != nil {
		return fmt.Errorf("clear login: %w", err)
	}
	p.hub.Publish(State{})
	p.logger.InfoContext(ctx, "shopper logged out")
	return nil
}

// Subscribe streams login state changes, starting with the current state.
func (p *Provider) Subscribe(ctx context.Context) (<-chan State, func()) {
	if _, ok := p.hub.Latest(); !ok {
		if st, err := p.Current(ctx); err == nil {
			p.hub.Publish(st)
		}
	}
	return p.hub.Subscribe(ctx)
}
