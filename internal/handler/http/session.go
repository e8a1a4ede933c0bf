package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Catalina-leal/Huertohogarapp/internal/session"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
	"github.com/Catalina-leal/Huertohogarapp/pkg/httputil"
	"github.com/Catalina-leal/Huertohogarapp/pkg/validator"
)

// SessionHandler handles login state for the device.
type SessionHandler struct {
	session *session.Provider
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(provider *session.Provider, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: provider, logger: logger}
}

// LoginRequest is the JSON request body for POST /session.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Login handles POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.session.SetLoggedIn(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, asStorageError(err), h.logger)
		return
	}

	h.Get(w, r)
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Current(r.Context())
	if err != nil {
		httputil.WriteError(w, r, apperrors.Persistence(err), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, st)
}

// Logout handles DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearLogin(r.Context()); err != nil {
		httputil.WriteError(w, r, apperrors.Persistence(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentShopper returns the logged-in email or a NotAuthenticated error.
func currentShopper(r *http.Request, provider *session.Provider) (string, error) {
	st, err := provider.Current(r.Context())
	if err != nil {
		return "", apperrors.Persistence(err)
	}
	if !st.LoggedIn {
		return "", apperrors.NotAuthenticated()
	}
	return st.Email, nil
}

func asStorageError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Persistence(err)
}
