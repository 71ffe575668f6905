package api

import (
	"net/http"

	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/service"
	"github.com/labstack/echo/v4"
)

type GroupHandler struct {
	groups *service.GroupService
}

func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *GroupHandler) ListGroups(c echo.Context) error {
	groups, err := h.groups.ListGroups(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}

	req := groupRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	group, err := h.groups.CreateGroup(c.Request().Context(), p.UserID, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	groupID, err := parseID(c, "Invalid group ID")
	if err != nil {
		return err
	}

	view, err := h.groups.GetGroup(c.Request().Context(), groupID, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *GroupHandler) JoinGroup(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	groupID, err := parseID(c, "Invalid group ID")
	if err != nil {
		return err
	}

	created, err := h.groups.JoinGroup(c.Request().Context(), groupID, p.UserID)
	if err != nil {
		return err
	}

	if !created {
		return c.JSON(http.StatusOK, message("Already a member of this group"))
	}
	return c.JSON(http.StatusOK, message("Successfully joined group"))
}

func (h *GroupHandler) DeleteGroup(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	groupID, err := parseID(c, "Invalid group ID")
	if err != nil {
		return err
	}

	if err := h.groups.DeleteGroup(c.Request().Context(), groupID, p.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Group deleted successfully"))
}

func (h *GroupHandler) ListMessages(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	groupID, err := parseID(c, "Invalid group ID")
	if err != nil {
		return err
	}

	messages, err := h.groups.ListMessages(c.Request().Context(), groupID, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *GroupHandler) PostMessage(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	groupID, err := parseID(c, "Invalid group ID")
	if err != nil {
		return err
	}

	req := contentRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	msg, err := h.groups.PostMessage(c.Request().Context(), groupID, p.UserID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}
