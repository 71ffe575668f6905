package api

import (
	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/metrics"
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth   *AuthHandler
	Posts  *PostHandler
	Groups *GroupHandler
	Chat   *ChatHandler
	Health *HealthHandler
}

// RegisterRoutes mounts every route. All routes except register, login, health and metrics need a session.
func RegisterRoutes(e *echo.Echo, authenticator *auth.Authenticator, h Handlers) {
	session := auth.SessionMiddleware(authenticator)

	e.GET("/health", h.Health.Check)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.POST("/auth/register", h.Auth.Register)
	e.POST("/auth/login", h.Auth.Login)
	e.POST("/auth/logout", h.Auth.Logout, session)
	e.GET("/auth/session", h.Auth.Session, session)

	e.GET("/users/me", h.Auth.Me, session)
	e.PUT("/users/me", h.Auth.UpdateMe, session)

	e.GET("/posts", h.Posts.ListPosts, session)
	e.POST("/posts", h.Posts.CreatePost, session)
	e.GET("/posts/:id", h.Posts.GetPost, session)
	e.DELETE("/posts/:id", h.Posts.DeletePost, session)
	e.POST("/posts/:id/like", h.Posts.LikePost, session)
	e.GET("/posts/:id/comments", h.Posts.ListComments, session)
	e.POST("/posts/:id/comments", h.Posts.CreateComment, session)

	e.GET("/groups", h.Groups.ListGroups, session)
	e.POST("/groups", h.Groups.CreateGroup, session)
	e.GET("/groups/:id", h.Groups.GetGroup, session)
	e.DELETE("/groups/:id", h.Groups.DeleteGroup, session)
	e.POST("/groups/:id/join", h.Groups.JoinGroup, session)
	e.GET("/groups/:id/messages", h.Groups.ListMessages, session)
	e.POST("/groups/:id/messages", h.Groups.PostMessage, session)
	e.GET("/groups/:id/ws", h.Chat.Stream, session)
}
