package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, groupID, userID int64, buffer int) *Client {
	c := &Client{hub: h, send: make(chan []byte, buffer), groupID: groupID, userID: userID}
	h.Register(c)
	return c
}

func messageEvent(t *testing.T, groupID int64, content string) events.Event {
	t.Helper()
	e, err := events.New(events.GroupMessageCreated, groupID, map[string]interface{}{
		"id":       1,
		"group_id": groupID,
		"content":  content,
	})
	require.NoError(t, err)
	return e
}

func TestHandleEventDeliversOnlyToThatGroup(t *testing.T) {
	h := NewHub()
	member := newTestClient(h, 1, 7, 4)
	other := newTestClient(h, 2, 8, 4)

	h.HandleEvent(context.Background(), messageEvent(t, 1, "hi"))

	require.Len(t, member.send, 1)
	assert.Contains(t, string(<-member.send), `"content":"hi"`)
	assert.Len(t, other.send, 0)
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 1, 7, 4)

	e, err := events.New(events.PostCreated, 1, map[string]int64{"group_id": 1})
	require.NoError(t, err)
	h.HandleEvent(context.Background(), e)

	assert.Len(t, c.send, 0)
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	h := NewHub()
	slow := newTestClient(h, 1, 7, 1)

	h.Broadcast(1, []byte("one"))
	h.Broadcast(1, []byte("two"))

	assert.Equal(t, 0, h.Subscribers(1))
	assert.Equal(t, "one", string(<-slow.send))
	_, open := <-slow.send
	assert.False(t, open)
}

func TestGroupDeletedClosesSubscribers(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 3, 7, 1)

	e, err := events.New(events.GroupDeleted, 3, map[string]int64{"id": 3})
	require.NoError(t, err)
	h.HandleEvent(context.Background(), e)

	assert.Equal(t, 0, h.Subscribers(3))
	_, open := <-c.send
	assert.False(t, open)
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 1, 7, 1)

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Subscribers(1))
}

func TestServeClientPushesOverWebsocket(t *testing.T) {
	h := NewHub()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.ServeClient(conn, 5, 7)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return h.Subscribers(5) == 1 }, time.Second, 10*time.Millisecond)

	h.HandleEvent(context.Background(), messageEvent(t, 5, "you are not alone"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "you are not alone")

	conn.Close()
	assert.Eventually(t, func() bool { return h.Subscribers(5) == 0 }, time.Second, 10*time.Millisecond)
}
