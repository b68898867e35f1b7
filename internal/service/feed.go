package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/policy"
	"github.com/sakif/profiles-api/internal/repository"
)

// MaxStatusTextLength bounds a post, counted in characters (runes).
const MaxStatusTextLength = 255

// CreatePostInput is the payload of POST /feeds. There is deliberately no
// owner field: the owner is always the caller.
type CreatePostInput struct {
	StatusText string `json:"status_text" validate:"required,max=255"`
}

// PostUpdate is the payload of PUT/PATCH /feeds/{id}.
type PostUpdate struct {
	StatusText *string `json:"status_text" validate:"omitempty,min=1,max=255"`
}

// FeedService manages status posts.
type FeedService struct {
	posts  repository.FeedRepository
	rule   policy.Rule[*model.FeedPost]
	logger *slog.Logger
}

// NewFeedService wires a FeedService. The API passes policy.UpdateOwnFeed
// as rule.
func NewFeedService(posts repository.FeedRepository, rule policy.Rule[*model.FeedPost], logger *slog.Logger) *FeedService {
	return &FeedService{posts: posts, rule: rule, logger: logger}
}

// Create stores a new post owned by actingID. Anonymous callers (actingID 0)
// are rejected before the payload is looked at.
func (s *FeedService) Create(ctx context.Context, actingID int64, in CreatePostInput) (*model.FeedPost, error) {
	if actingID == 0 {
		return nil, apperror.Unauthenticated("Authentication credentials were not provided.")
	}

	in.StatusText = strings.TrimSpace(in.StatusText)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	post := &model.FeedPost{
		OwnerID:    actingID,
		StatusText: in.StatusText,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create feed item",
			slog.Int64("owner_id", actingID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("feed item created",
		slog.Int64("id", post.ID),
		slog.Int64("owner_id", post.OwnerID),
	)
	return post, nil
}

// Update changes the text of a post owned by actingID. The owner and
// creation time never change.
func (s *FeedService) Update(ctx context.Context, actingID, postID int64, upd PostUpdate, mode UpdateMode) (*model.FeedPost, error) {
	post, err := s.authorized(ctx, actingID, postID, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}

	trimPtr(upd.StatusText)
	fields, err := fieldErrors(upd)
	if err != nil {
		return nil, err
	}
	if mode == Replace {
		fields = requireAll(fields, map[string]bool{"status_text": upd.StatusText != nil})
	}
	if len(fields) > 0 {
		return nil, apperror.InvalidFields(fields)
	}

	if upd.StatusText == nil {
		return post, nil
	}
	post.StatusText = *upd.StatusText
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("feed item updated", slog.Int64("id", post.ID))
	return post, nil
}

// Delete removes a post owned by actingID.
func (s *FeedService) Delete(ctx context.Context, actingID, postID int64) error {
	if _, err := s.authorized(ctx, actingID, postID, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return err
	}

	s.logger.Info("feed item deleted", slog.Int64("id", postID))
	return nil
}

func (s *FeedService) Get(ctx context.Context, id int64) (*model.FeedPost, error) {
	return s.posts.GetPostByID(ctx, id)
}

// List returns every post in insertion order.
func (s *FeedService) List(ctx context.Context) ([]model.FeedPost, error) {
	return s.posts.ListPosts(ctx)
}

// authorized loads the post and checks the owner rule for action.
func (s *FeedService) authorized(ctx context.Context, actingID, postID int64, action policy.Action) (*model.FeedPost, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.rule.Authorize(actingID, action, post); err != nil {
		s.logger.Warn("feed item change denied",
			slog.Int64("actor_id", actingID),
			slog.Int64("id", postID),
			slog.String("action", action.String()),
		)
		return nil, err
	}
	return post, nil
}
