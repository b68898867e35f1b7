package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/service"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

// asUser attaches a principal the way auth.Authenticate would.
func asUser(r *http.Request, id int64) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{ID: id}))
}

// fakeFeed records what the handler passed down and returns canned values.
type fakeFeed struct {
	gotActor int64
	gotID    int64
	gotMode  service.UpdateMode
	gotText  string
	err      error
}

func (f *fakeFeed) Create(_ context.Context, actingID int64, in service.CreatePostInput) (*model.FeedPost, error) {
	f.gotActor, f.gotText = actingID, in.StatusText
	if f.err != nil {
		return nil, f.err
	}
	return &model.FeedPost{ID: 1, OwnerID: actingID, StatusText: in.StatusText, CreatedOn: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeFeed) Update(_ context.Context, actingID, postID int64, upd service.PostUpdate, mode service.UpdateMode) (*model.FeedPost, error) {
	f.gotActor, f.gotID, f.gotMode = actingID, postID, mode
	if upd.StatusText != nil {
		f.gotText = *upd.StatusText
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.FeedPost{ID: postID, OwnerID: actingID, StatusText: f.gotText}, nil
}

func (f *fakeFeed) Delete(_ context.Context, actingID, postID int64) error {
	f.gotActor, f.gotID = actingID, postID
	return f.err
}

func (f *fakeFeed) Get(_ context.Context, id int64) (*model.FeedPost, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &model.FeedPost{ID: id, OwnerID: 3, StatusText: "hello"}, nil
}

func (f *fakeFeed) List(context.Context) ([]model.FeedPost, error) {
	return []model.FeedPost{}, f.err
}

func feedRouter(feed *fakeFeed) http.Handler {
	h := NewFeedHandler(feed, discardLogger)
	r := chi.NewRouter()
	r.Get("/feeds", h.HandleList)
	r.Post("/feeds", h.HandleCreate)
	r.Get("/feeds/{id}", h.HandleGet)
	r.Put("/feeds/{id}", h.HandleUpdate)
	r.Patch("/feeds/{id}", h.HandleUpdate)
	r.Delete("/feeds/{id}", h.HandleDelete)
	return r
}

func TestFeedHandler_CreateUsesCaller(t *testing.T) {
	feed := &fakeFeed{}
	req := asUser(httptest.NewRequest(http.MethodPost, "/feeds",
		strings.NewReader(`{"status_text":"hello","user_profile":99}`)), 7)
	rec := httptest.NewRecorder()

	feedRouter(feed).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(7), feed.gotActor)
	assert.Equal(t, "hello", feed.gotText)

	var post model.FeedPost
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&post))
	assert.Equal(t, int64(7), post.OwnerID)
}

func TestFeedHandler_ListIsEmptyArray(t *testing.T) {
	rec := httptest.NewRecorder()
	feedRouter(&fakeFeed{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feeds", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestFeedHandler_UpdateMode(t *testing.T) {
	tests := []struct {
		method string
		want   service.UpdateMode
	}{
		{http.MethodPut, service.Replace},
		{http.MethodPatch, service.Partial},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			feed := &fakeFeed{}
			req := asUser(httptest.NewRequest(tt.method, "/feeds/5", strings.NewReader(`{"status_text":"edited"}`)), 2)
			rec := httptest.NewRecorder()

			feedRouter(feed).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, feed.gotMode)
			assert.Equal(t, int64(5), feed.gotID)
			assert.Equal(t, "edited", feed.gotText)
		})
	}
}

func TestFeedHandler_Delete(t *testing.T) {
	feed := &fakeFeed{}
	rec := httptest.NewRecorder()
	feedRouter(feed).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/feeds/4", nil), 2))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, int64(4), feed.gotID)
}

func TestFeedHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"forbidden", apperror.Forbidden("You can only edit your own status."), http.StatusForbidden},
		{"not found", apperror.NotFound("feed item", 4), http.StatusNotFound},
		{"validation", apperror.ValidationFailed("status_text", "too long"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := asUser(httptest.NewRequest(http.MethodPatch, "/feeds/4", strings.NewReader(`{}`)), 2)
			feedRouter(&fakeFeed{err: tt.err}).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestFeedHandler_BadID(t *testing.T) {
	feed := &fakeFeed{}
	rec := httptest.NewRecorder()
	feedRouter(feed).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feeds/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, feed.gotID, "service is not called")
}

type fakeAuthn struct {
	gotEmail string
	err      error
}

func (f *fakeAuthn) Authenticate(_ context.Context, email, _ string) (*service.AuthResult, error) {
	f.gotEmail = email
	if f.err != nil {
		return nil, f.err
	}
	return &service.AuthResult{Account: &model.Account{ID: 1, Email: email}, Token: "tok"}, nil
}

func TestLoginHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		authn := &fakeAuthn{}
		rec := httptest.NewRecorder()
		NewLoginHandler(authn, discardLogger).HandleLogin(rec,
			httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"jane@ex.com","password":"pw"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"token":"tok"}`, rec.Body.String())
	})

	t.Run("username alias", func(t *testing.T) {
		authn := &fakeAuthn{}
		rec := httptest.NewRecorder()
		NewLoginHandler(authn, discardLogger).HandleLogin(rec,
			httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"jane@ex.com","password":"pw"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jane@ex.com", authn.gotEmail)
	})

	t.Run("bad credentials are a 400", func(t *testing.T) {
		authn := &fakeAuthn{err: apperror.Unauthenticated("Unable to log in with provided credentials.")}
		rec := httptest.NewRecorder()
		NewLoginHandler(authn, discardLogger).HandleLogin(rec,
			httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"jane@ex.com","password":"nope"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "Unable to log in with provided credentials.", body.Fields["non_field_errors"])
	})
}

func TestHelloHandler(t *testing.T) {
	h := NewHelloHandler()

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleGet(rec, httptest.NewRequest(http.MethodGet, "/hello-view", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Hello there!")
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"greets", `{"name":"Jane"}`, http.StatusOK, `{"message":"Hello Jane!"}`},
		{"ten characters", `{"name":"abcdefghij"}`, http.StatusOK, `{"message":"Hello abcdefghij!"}`},
		{"too long", `{"name":"abcdefghijk"}`, http.StatusBadRequest, ""},
		{"missing", `{}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandlePost(rec, httptest.NewRequest(http.MethodPost, "/hello-view", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}

	t.Run("echo", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleEcho(rec, httptest.NewRequest(http.MethodPatch, "/hello-view", nil))
		assert.JSONEq(t, `{"method":"PATCH"}`, rec.Body.String())
	})
}
