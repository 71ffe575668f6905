package service

import (
	"context"
	"strings"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
)

type PostService struct {
	posts PostStore
	feed  FeedCache
	pub   events.Publisher
}

// NewPostService creates a new instance of PostService.
func NewPostService(posts PostStore, feed FeedCache, pub events.Publisher) *PostService {
	return &PostService{posts: posts, feed: feed, pub: pub}
}

// ListPosts returns the global feed, newest first. The feed is served from cache when possible.
// The generation is read before the database so a snapshot that races a write is cached under
// a generation the write has already retired.
func (s *PostService) ListPosts(ctx context.Context) ([]*entity.Post, error) {
	gen, err := s.feed.FeedGeneration(ctx)
	cacheable := err == nil
	if err != nil {
		logger.Warn().Err(err).Msg("Error reading feed generation from cache")
	}

	// Read from cache
	if cacheable {
		cached, ok, err := s.feed.GetFeed(ctx, gen)
		if err != nil {
			logger.Warn().Err(err).Msg("Error reading feed from cache")
		}
		if ok {
			return cached, nil
		}
	}

	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, wrapErr(err, "Error fetching posts")
	}

	// Write to cache
	if cacheable {
		if err := s.feed.SetFeed(ctx, gen, posts); err != nil {
			logger.Warn().Err(err).Msg("Error writing feed to cache")
		}
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, postID int64) (*entity.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, wrapErr(err, "Error fetching post")
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, userID int64, content string) (*entity.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("Content is required")
	}

	post, err := s.posts.CreatePost(ctx, userID, content)
	if err != nil {
		return nil, wrapErr(err, "Error creating post")
	}

	s.invalidateFeed(ctx)
	publish(ctx, s.pub, events.PostCreated, post.ID, post)
	return post, nil
}

// DeletePost removes a post with its likes and comments. Only the author may delete it.
func (s *PostService) DeletePost(ctx context.Context, postID, userID int64) error {
	ownerID, err := s.posts.GetPostOwner(ctx, postID)
	if err != nil {
		return wrapErr(err, "Error deleting post")
	}
	if err := auth.RequireOwnership(ownerID, userID, "You can only delete your own posts"); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return wrapErr(err, "Error deleting post")
	}

	s.invalidateFeed(ctx)
	logger.Info().Int64("post_id", postID).Int64("user_id", userID).Msg("Post deleted")
	return nil
}

type LikeResult struct {
	Created bool
	Likes   int
}

// LikePost records a like at most once per user and post.
func (s *PostService) LikePost(ctx context.Context, postID, userID int64) (*LikeResult, error) {
	if err := s.requirePost(ctx, postID, "Error liking post"); err != nil {
		return nil, err
	}

	created, err := s.posts.AddLike(ctx, postID, userID)
	if err != nil {
		return nil, wrapErr(err, "Error liking post")
	}

	likes, err := s.posts.CountLikes(ctx, postID)
	if err != nil {
		return nil, wrapErr(err, "Error liking post")
	}

	if created {
		s.invalidateFeed(ctx)
		publish(ctx, s.pub, events.PostLiked, postID, map[string]interface{}{
			"post_id": postID,
			"user_id": userID,
			"likes":   likes,
		})
	}
	return &LikeResult{Created: created, Likes: likes}, nil
}

// ListComments returns the post's comments, oldest first.
func (s *PostService) ListComments(ctx context.Context, postID int64) ([]*entity.Comment, error) {
	if err := s.requirePost(ctx, postID, "Error fetching comments"); err != nil {
		return nil, err
	}

	comments, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, wrapErr(err, "Error fetching comments")
	}
	return comments, nil
}

func (s *PostService) CreateComment(ctx context.Context, postID, userID int64, content string) (*entity.Comment, error) {
	if err := s.requirePost(ctx, postID, "Error creating comment"); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("Comment content is required")
	}

	comment, err := s.posts.CreateComment(ctx, postID, userID, content)
	if err != nil {
		return nil, wrapErr(err, "Error creating comment")
	}

	s.invalidateFeed(ctx)
	publish(ctx, s.pub, events.CommentCreated, comment.ID, comment)
	return comment, nil
}

func (s *PostService) requirePost(ctx context.Context, postID int64, msg string) error {
	exists, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return wrapErr(err, msg)
	}
	if !exists {
		return apperror.NotFound("Post not found")
	}
	return nil
}

func (s *PostService) invalidateFeed(ctx context.Context) {
	if err := s.feed.InvalidateFeed(ctx); err != nil {
		logger.Error().Err(err).Msg("Error invalidating feed cache")
	}
}
