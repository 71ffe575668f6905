package api

import (
	"net/http"

	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/service"
	"github.com/labstack/echo/v4"
)

type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *PostHandler) ListPosts(c echo.Context) error {
	posts, err := h.posts.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) CreatePost(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}

	req := contentRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	post, err := h.posts.CreatePost(c.Request().Context(), p.UserID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := parseID(c, "Invalid post ID")
	if err != nil {
		return err
	}

	post, err := h.posts.GetPost(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "Invalid post ID")
	if err != nil {
		return err
	}

	if err := h.posts.DeletePost(c.Request().Context(), postID, p.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Post deleted"))
}

func (h *PostHandler) LikePost(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "Invalid post ID")
	if err != nil {
		return err
	}

	res, err := h.posts.LikePost(c.Request().Context(), postID, p.UserID)
	if err != nil {
		return err
	}

	msg := "Post liked"
	if !res.Created {
		msg = "Post already liked"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": msg, "likes": res.Likes})
}

func (h *PostHandler) ListComments(c echo.Context) error {
	postID, err := parseID(c, "Invalid post ID")
	if err != nil {
		return err
	}

	comments, err := h.posts.ListComments(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *PostHandler) CreateComment(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "Invalid post ID")
	if err != nil {
		return err
	}

	req := contentRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	comment, err := h.posts.CreateComment(c.Request().Context(), postID, p.UserID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}
