package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/service"
)

// Authenticator is what LoginHandler needs from service.AccountService.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error)
}

// LoginHandler exchanges credentials for a bearer token.
type LoginHandler struct {
	authn  Authenticator
	logger *slog.Logger
}

func NewLoginHandler(authn Authenticator, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{authn: authn, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"` // alias for email
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// HandleLogin checks the credentials and returns a token.
//
// HTTP: POST /login
// BODY: {"email": "jane@ex.com", "password": "secret123"}
// RESPONSE: {"token": "..."}
//
// Bad credentials are a 400 with a single non-field message: login is a
// form submission, not an authenticated request, so 401 would be wrong here.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	email := req.Email
	if email == "" {
		email = req.Username
	}

	res, err := h.authn.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		var appErr *apperror.AppError
		if errors.Is(err, apperror.ErrUnauthenticated) && errors.As(err, &appErr) {
			err = apperror.ValidationFailed("non_field_errors", appErr.Message)
		}
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token})
}
