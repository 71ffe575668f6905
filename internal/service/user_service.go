package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
)

// Column widths of the users table.
const (
	maxUsernameLen       = 50
	maxEmailLen          = 255
	maxNameLen           = 100
	maxProfilePictureLen = 512
)

type UserService struct {
	users UserStore
	feed  FeedCache
	auth  *auth.Authenticator
}

// NewUserService creates a new instance of UserService. feed is invalidated when a profile
// change touches the author fields embedded in posts.
func NewUserService(users UserStore, feed FeedCache, authenticator *auth.Authenticator) *UserService {
	return &UserService{users: users, feed: feed, auth: authenticator}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
}

// Register creates an account. Username and email must both be unused.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, apperror.Validation("Username, email, and password are required")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.Validation("Password must be at most 72 bytes")
	}
	if err := checkLen("Username", username, maxUsernameLen); err != nil {
		return nil, err
	}
	if err := checkLen("Email", email, maxEmailLen); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := checkLen("Name", name, maxNameLen); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, wrapErr(err, "Error during registration")
	}
	// Lookups are case-insensitive under the default collation.
	for _, u := range existing {
		if strings.EqualFold(u.Username, username) {
			return nil, apperror.Conflict("This username is already in use")
		}
	}
	if len(existing) > 0 {
		return nil, apperror.Conflict("This email is already in use")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, wrapErr(err, "Error during registration")
	}

	user := &entity.User{Username: username, Email: email, Password: hash}
	if name != "" {
		user.Name = &name
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, wrapErr(err, "Error during registration")
	}

	logger.Info().Int64("user_id", created.ID).Msgf("Registered user %s", created.Username)
	return created, nil
}

type Session struct {
	User      *entity.User
	Token     string
	Principal *auth.Principal
}

// Login checks the credentials and issues a new session token.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.Validation("Username and password are required")
	}

	principal, err := s.auth.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	token, issued, err := s.auth.IssueSession(*principal)
	if err != nil {
		return nil, wrapErr(err, "Error during login")
	}

	user, err := s.users.GetUserByID(ctx, principal.UserID)
	if err != nil {
		return nil, wrapErr(err, "Error during login")
	}

	return &Session{User: user, Token: token, Principal: issued}, nil
}

// Logout revokes the session so the token is refused even before it expires.
func (s *UserService) Logout(ctx context.Context, p *auth.Principal) error {
	if err := s.auth.Revoke(ctx, p); err != nil {
		return wrapErr(err, "Error during logout")
	}
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, wrapErr(err, "Error fetching profile")
	}
	return user, nil
}

// ProfileInput fields left nil are not changed.
type ProfileInput struct {
	Name           *string
	ProfilePicture *string
	Bio            *string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*entity.User, error) {
	name, picture, bio := trimPtr(in.Name), trimPtr(in.ProfilePicture), trimPtr(in.Bio)
	if name != nil {
		if err := checkLen("Name", *name, maxNameLen); err != nil {
			return nil, err
		}
	}
	if picture != nil {
		if err := checkLen("Profile picture", *picture, maxProfilePictureLen); err != nil {
			return nil, err
		}
	}

	user, err := s.users.UpdateProfile(ctx, userID, name, picture, bio)
	if err != nil {
		return nil, wrapErr(err, "Error updating profile")
	}

	if name != nil || picture != nil {
		if err := s.feed.InvalidateFeed(ctx); err != nil {
			logger.Error().Err(err).Msg("Error invalidating feed cache")
		}
	}
	return user, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

// checkLen counts characters, matching VARCHAR widths.
func checkLen(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return apperror.Validation(fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return nil
}
