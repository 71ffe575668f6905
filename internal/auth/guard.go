package auth

import (
	"context"
	"errors"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CookieName   = "mindhaven.session-token"
	principalKey = "principal"
)

var errNoSession = errors.New("no valid session")

// SessionMiddleware resolves the session cookie (or a bearer token) into a Principal.
// Requests without a valid session stop here with Unauthorized.
func SessionMiddleware(a *Authenticator) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  principalKey,
		TokenLookup: "cookie:" + CookieName + ",header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			p, ok := a.ValidateSession(c.Request().Context(), token)
			if !ok {
				return nil, errNoSession
			}
			return p, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperror.Unauthorized("Unauthorized")
		},
	})
}

// RequireSession returns the request's principal.
func RequireSession(c echo.Context) (*Principal, error) {
	p, ok := c.Get(principalKey).(*Principal)
	if !ok || p == nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	return p, nil
}

type MembershipChecker interface {
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

type Guard struct {
	members MembershipChecker
}

func NewGuard(members MembershipChecker) *Guard {
	return &Guard{members: members}
}

// RequireMembership answers NotFound for a missing group, then Forbidden for a non-member.
func (g *Guard) RequireMembership(ctx context.Context, groupID, userID int64) error {
	exists, err := g.members.GroupExists(ctx, groupID)
	if err != nil {
		logger.Error().Err(err).Int64("group_id", groupID).Msg("Error checking group membership")
		return apperror.Internal("Server error", err)
	}
	if !exists {
		return apperror.NotFound("Group not found")
	}

	member, err := g.members.IsMember(ctx, groupID, userID)
	if err != nil {
		logger.Error().Err(err).Int64("group_id", groupID).Msg("Error checking group membership")
		return apperror.Internal("Server error", err)
	}
	if !member {
		return apperror.Forbidden("You must be a member to access this group")
	}
	return nil
}

// RequireOwnership allows the action only when userID owns the resource.
func RequireOwnership(ownerID, userID int64, msg string) error {
	if ownerID != userID {
		return apperror.Forbidden(msg)
	}
	return nil
}
