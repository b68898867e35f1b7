package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/repository"
)

var _ repository.FeedRepository = (*DB)(nil)

const postColumns = `id, owner_id, status_text, created_on`

// CreatePost inserts post, stamping CreatedOn and filling in the generated ID.
func (db *DB) CreatePost(ctx context.Context, post *model.FeedPost) error {
	post.CreatedOn = time.Now().UTC()

	err := db.conn.QueryRowxContext(ctx, db.conn.Rebind(
		`INSERT INTO feed_posts (owner_id, status_text, created_on)
		 VALUES (?, ?, ?)
		 RETURNING id`),
		post.OwnerID,
		post.StatusText,
		post.CreatedOn,
	).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: creating feed post: %w", err)
	}
	return nil
}

func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.FeedPost, error) {
	var p model.FeedPost
	err := db.conn.GetContext(ctx, &p, db.conn.Rebind(
		`SELECT `+postColumns+` FROM feed_posts WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("feed item", id)
		}
		return nil, fmt.Errorf("sqlstore: getting feed post %d: %w", id, err)
	}
	return &p, nil
}

// ListPosts returns every post in insertion order. IDs are assigned by the
// database in that order; created_on comes from the app clock and can step
// backwards, so it is not used for ordering.
func (db *DB) ListPosts(ctx context.Context) ([]model.FeedPost, error) {
	posts := []model.FeedPost{}
	err := db.conn.SelectContext(ctx, &posts,
		`SELECT `+postColumns+` FROM feed_posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing feed posts: %w", err)
	}
	return posts, nil
}

// UpdatePost only writes the text: owner and creation time are immutable.
func (db *DB) UpdatePost(ctx context.Context, post *model.FeedPost) error {
	result, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`UPDATE feed_posts SET status_text = ? WHERE id = ?`),
		post.StatusText,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating feed post %d: %w", post.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("feed item", post.ID)
	}
	return nil
}

func (db *DB) DeletePost(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM feed_posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting feed post %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("feed item", id)
	}
	return nil
}
