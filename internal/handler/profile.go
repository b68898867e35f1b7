package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/service"
)

// ProfileService is what ProfileHandler needs from service.AccountService.
type ProfileService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.Account, error)
	UpdateProfile(ctx context.Context, actingID, targetID int64, upd service.ProfileUpdate, mode service.UpdateMode) (*model.Account, error)
	Get(ctx context.Context, id int64) (*model.Account, error)
	List(ctx context.Context, search string) ([]model.Account, error)
}

// ProfileHandler serves /profiles.
type ProfileHandler struct {
	profiles ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleList returns every profile, filtered by ?search= when given.
//
// HTTP: GET /profiles?search=jane
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.profiles.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleCreate registers a new account. No token is needed.
//
// HTTP: POST /profiles
// BODY: {"name": "Jane", "email": "jane@ex.com", "password": "secret123"}
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	account, err := h.profiles.Register(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// HTTP: GET /profiles/{id}
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profile")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	account, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleUpdate edits the caller's own profile. PUT replaces every field,
// PATCH only those present in the body.
//
// HTTP: PUT|PATCH /profiles/{id}
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profile")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var upd service.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		WriteError(w, r, err)
		return
	}

	account, err := h.profiles.UpdateProfile(r.Context(), auth.ActorID(r.Context()), id, upd, modeForMethod(r.Method))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func modeForMethod(method string) service.UpdateMode {
	if method == http.MethodPatch {
		return service.Partial
	}
	return service.Replace
}
