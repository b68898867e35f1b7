package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/service"
)

// FeedService is what FeedHandler needs from service.FeedService.
type FeedService interface {
	Create(ctx context.Context, actingID int64, in service.CreatePostInput) (*model.FeedPost, error)
	Update(ctx context.Context, actingID, postID int64, upd service.PostUpdate, mode service.UpdateMode) (*model.FeedPost, error)
	Delete(ctx context.Context, actingID, postID int64) error
	Get(ctx context.Context, id int64) (*model.FeedPost, error)
	List(ctx context.Context) ([]model.FeedPost, error)
}

// FeedHandler serves /feeds.
type FeedHandler struct {
	feed   FeedService
	logger *slog.Logger
}

func NewFeedHandler(feed FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logger}
}

// HTTP: GET /feeds
func (h *FeedHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.feed.List(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleCreate posts a status update as the caller. Any owner field in the
// body is ignored.
//
// HTTP: POST /feeds
// BODY: {"status_text": "hello"}
func (h *FeedHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	post, err := h.feed.Create(r.Context(), auth.ActorID(r.Context()), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HTTP: GET /feeds/{id}
func (h *FeedHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "feed item")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	post, err := h.feed.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HTTP: PUT|PATCH /feeds/{id}
func (h *FeedHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "feed item")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var upd service.PostUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		WriteError(w, r, err)
		return
	}

	post, err := h.feed.Update(r.Context(), auth.ActorID(r.Context()), id, upd, modeForMethod(r.Method))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HTTP: DELETE /feeds/{id} → 204 No Content
func (h *FeedHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "feed item")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.feed.Delete(r.Context(), auth.ActorID(r.Context()), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
