package api

import (
	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/chat"
	"github.com/Aeshi-Nero/Mind-Haven/internal/metrics"
	"github.com/Aeshi-Nero/Mind-Haven/internal/service"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type ChatHandler struct {
	groups   *service.GroupService
	hub      *chat.Hub
	upgrader websocket.Upgrader
}

func NewChatHandler(groups *service.GroupService, hub *chat.Hub) *ChatHandler {
	return &ChatHandler{
		groups: groups,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Stream upgrades to a websocket that receives every new message of the group.
// Membership is checked before the upgrade so refusals are plain JSON errors.
func (h *ChatHandler) Stream(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	groupID, err := parseID(c, "Invalid group ID")
	if err != nil {
		return err
	}

	if err := h.groups.RequireMember(c.Request().Context(), groupID, p.UserID); err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the failure response
		return nil
	}

	metrics.ChatConnected()
	defer metrics.ChatDisconnected()

	h.hub.ServeClient(conn, groupID, p.UserID)
	return nil
}
