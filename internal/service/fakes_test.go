package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/policy"
	"github.com/sakif/profiles-api/internal/repository"
)

// fakeStore is an in-memory stand-in for sqlstore.DB. It implements the
// account, feed and token repositories and copies values in and out so
// tests cannot mutate stored state through a returned pointer.
type fakeStore struct {
	accounts map[int64]model.Account
	posts    map[int64]model.FeedPost
	tokens   map[int64]model.AuthToken
	nextID   int64
	clock    time.Time

	// failWith, when set, is returned by every call.
	failWith error
}

var (
	_ repository.AccountRepository = (*fakeStore)(nil)
	_ repository.FeedRepository    = (*fakeStore)(nil)
	_ repository.TokenRepository   = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[int64]model.Account),
		posts:    make(map[int64]model.FeedPost),
		tokens:   make(map[int64]model.AuthToken),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateAccount(_ context.Context, a *model.Account) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return apperror.ValidationFailed("email", msgDuplicateEmail)
		}
	}
	a.ID = f.id()
	f.accounts[a.ID] = *a
	return nil
}

func (f *fakeStore) GetAccountByID(_ context.Context, id int64) (*model.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	return &a, nil
}

func (f *fakeStore) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, a := range f.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, apperror.NotFound("profile", email)
}

func (f *fakeStore) ListAccounts(_ context.Context, filter repository.AccountFilter) ([]model.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	needle := strings.ToLower(filter.Search)
	out := []model.Account{}
	for _, a := range f.accounts {
		if needle == "" ||
			strings.Contains(strings.ToLower(a.Name), needle) ||
			strings.Contains(strings.ToLower(a.Email), needle) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a *model.Account) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.accounts[a.ID]; !ok {
		return apperror.NotFound("profile", a.ID)
	}
	for id, existing := range f.accounts {
		if id != a.ID && existing.Email == a.Email {
			return apperror.ValidationFailed("email", msgDuplicateEmail)
		}
	}
	f.accounts[a.ID] = *a
	return nil
}

func (f *fakeStore) DeleteAccount(_ context.Context, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.accounts[id]; !ok {
		return apperror.NotFound("profile", id)
	}
	delete(f.accounts, id)
	delete(f.tokens, id)
	for pid, p := range f.posts {
		if p.OwnerID == id {
			delete(f.posts, pid)
		}
	}
	return nil
}

func (f *fakeStore) CreatePost(_ context.Context, p *model.FeedPost) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.accounts[p.OwnerID]; !ok {
		return errors.New("FOREIGN KEY constraint failed")
	}
	f.clock = f.clock.Add(time.Second)
	p.ID = f.id()
	p.CreatedOn = f.clock
	f.posts[p.ID] = *p
	return nil
}

func (f *fakeStore) GetPostByID(_ context.Context, id int64) (*model.FeedPost, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("feed item", id)
	}
	return &p, nil
}

func (f *fakeStore) ListPosts(_ context.Context) ([]model.FeedPost, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.FeedPost, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdatePost(_ context.Context, p *model.FeedPost) error {
	if f.failWith != nil {
		return f.failWith
	}
	stored, ok := f.posts[p.ID]
	if !ok {
		return apperror.NotFound("feed item", p.ID)
	}
	stored.StatusText = p.StatusText
	f.posts[p.ID] = stored
	return nil
}

func (f *fakeStore) DeletePost(_ context.Context, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("feed item", id)
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeStore) ReplaceToken(_ context.Context, t *model.AuthToken) error {
	if f.failWith != nil {
		return f.failWith
	}
	t.CreatedAt = f.clock
	f.tokens[t.AccountID] = *t
	return nil
}

func (f *fakeStore) GetTokenByHash(_ context.Context, keyHash string) (*model.AuthToken, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, t := range f.tokens {
		if t.KeyHash == keyHash {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("token", "(redacted)")
}

func (f *fakeStore) DeleteTokensForAccount(_ context.Context, accountID int64) error {
	delete(f.tokens, accountID)
	return nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

type testEnv struct {
	store     *fakeStore
	accounts  *AccountService
	feed      *FeedService
	authority *auth.Authority
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	passwords := auth.NewPasswordServiceForTest()
	authority := auth.NewAuthority(store, passwords, auth.NewOpaqueTokens(store, 0), logger)

	return &testEnv{
		store:     store,
		accounts:  NewAccountService(store, passwords, authority, policy.UpdateOwnProfile, logger),
		feed:      NewFeedService(store, policy.UpdateOwnFeed, logger),
		authority: authority,
	}
}

func (e *testEnv) register(t *testing.T, name, email, password string) *model.Account {
	t.Helper()
	a, err := e.accounts.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register(%q) error = %v", email, err)
	}
	return a
}

func ptr[T any](v T) *T { return &v }
