package service

import (
	"context"
	"errors"
	"os"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
	"github.com/Aeshi-Nero/Mind-Haven/internal/metrics"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) ([]entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) (*entity.User, error)
	UpdateProfile(ctx context.Context, id int64, name, profilePicture, bio *string) (*entity.User, error)
}

type PostStore interface {
	ListPosts(ctx context.Context) ([]*entity.Post, error)
	GetPostByID(ctx context.Context, id int64) (*entity.Post, error)
	PostExists(ctx context.Context, id int64) (bool, error)
	GetPostOwner(ctx context.Context, id int64) (int64, error)
	CreatePost(ctx context.Context, userID int64, content string) (*entity.Post, error)
	DeletePost(ctx context.Context, id int64) error
	AddLike(ctx context.Context, postID, userID int64) (bool, error)
	CountLikes(ctx context.Context, postID int64) (int, error)
	ListComments(ctx context.Context, postID int64) ([]*entity.Comment, error)
	CreateComment(ctx context.Context, postID, userID int64, content string) (*entity.Comment, error)
}

type GroupStore interface {
	ListGroups(ctx context.Context) ([]*entity.Group, error)
	GetGroupByID(ctx context.Context, id int64) (*entity.Group, error)
	GetGroupCreator(ctx context.Context, id int64) (int64, error)
	GroupExists(ctx context.Context, id int64) (bool, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	CreateGroupWithCreator(ctx context.Context, name, description string, creatorID int64) (*entity.Group, error)
	AddMember(ctx context.Context, groupID, userID int64) (bool, error)
	DeleteGroup(ctx context.Context, id int64) error
}

type MessageStore interface {
	ListMessages(ctx context.Context, groupID int64) ([]*entity.GroupMessage, error)
	CreateMessage(ctx context.Context, groupID, userID int64, content string) (*entity.GroupMessage, error)
}

// FeedCache entries are keyed by generation; InvalidateFeed starts a new one.
type FeedCache interface {
	FeedGeneration(ctx context.Context) (int64, error)
	GetFeed(ctx context.Context, gen int64) ([]*entity.Post, bool, error)
	SetFeed(ctx context.Context, gen int64, posts []*entity.Post) error
	InvalidateFeed(ctx context.Context) error
}

// wrapErr passes application errors through and turns anything else into a logged Internal error.
func wrapErr(err error, msg string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	logger.Error().Err(err).Msg(msg)
	return apperror.Internal(msg, err)
}

// publish is best effort: the write it describes has already been committed.
func publish(ctx context.Context, pub events.Publisher, eventType events.Type, subjectID int64, payload interface{}) {
	e, err := events.New(eventType, subjectID, payload)
	if err == nil {
		err = pub.Publish(ctx, e)
	}
	metrics.RecordEvent(string(eventType), err)
	if err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for %d", eventType, subjectID)
	}
}
