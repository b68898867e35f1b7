// Package repository declares the storage contracts the services depend on.
// Implementations translate missing rows into apperror.NotFound and unique
// email violations into apperror.ErrValidation.
package repository

import (
	"context"

	"github.com/sakif/profiles-api/internal/model"
)

// AccountFilter narrows an account listing.
type AccountFilter struct {
	// Search is a case-insensitive substring matched against name or email.
	Search string
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	DeleteAccount(ctx context.Context, id int64) error
}

type FeedRepository interface {
	CreatePost(ctx context.Context, post *model.FeedPost) error
	GetPostByID(ctx context.Context, id int64) (*model.FeedPost, error)
	ListPosts(ctx context.Context) ([]model.FeedPost, error)
	UpdatePost(ctx context.Context, post *model.FeedPost) error
	DeletePost(ctx context.Context, id int64) error
}

type TokenRepository interface {
	// ReplaceToken stores token as the only token of its account.
	ReplaceToken(ctx context.Context, token *model.AuthToken) error
	GetTokenByHash(ctx context.Context, keyHash string) (*model.AuthToken, error)
	DeleteTokensForAccount(ctx context.Context, accountID int64) error
}
