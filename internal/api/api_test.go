package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/chat"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
	"github.com/Aeshi-Nero/Mind-Haven/internal/service"
	"github.com/Aeshi-Nero/Mind-Haven/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e     *echo.Echo
	store *testutil.MockStore
	auth  *auth.Authenticator
	hub   *chat.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := testutil.NewMockStore()
	store.AddUser(entity.User{ID: 7, Username: "river", Email: "river@example.com"})
	store.AddUser(entity.User{ID: 8, Username: "lake", Email: "lake@example.com"})

	authenticator := auth.NewAuthenticator(store, auth.NewMemoryRevocationStore(), "test-secret", time.Hour)
	hub := chat.NewHub()
	bus := events.NewLocalPublisher(hub.HandleEvent)

	feed := &testutil.MockFeedCache{}
	groups := service.NewGroupService(store, store, bus)
	e := NewServer(ServerOptions{Logger: zerolog.Nop(), RateLimitRPS: 1000, RateLimitBurst: 1000})
	RegisterRoutes(e, authenticator, Handlers{
		Auth:   NewAuthHandler(service.NewUserService(store, feed, authenticator), false),
		Posts:  NewPostHandler(service.NewPostService(store, feed, bus)),
		Groups: NewGroupHandler(groups),
		Chat:   NewChatHandler(groups, hub),
		Health: NewHealthHandler(nil),
	})

	return &testServer{e: e, store: store, auth: authenticator, hub: hub}
}

func (s *testServer) cookieFor(t *testing.T, userID int64, username string) *http.Cookie {
	t.Helper()
	token, _, err := s.auth.IssueSession(auth.Principal{UserID: userID, Username: username})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func TestCreatePostAsUser(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")

	rec := s.do(t, http.MethodPost, "/posts", `{"content":"hello"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post entity.Post
	decode(t, rec, &post)
	assert.Equal(t, int64(7), post.UserID)
	assert.Equal(t, "hello", post.Content)
	assert.Equal(t, 0, post.LikesCount)
	assert.Equal(t, 0, post.CommentsCount)
	require.NotNil(t, post.User)
	assert.Equal(t, "river", post.User.Username)

	rec = s.do(t, http.MethodGet, "/posts", "", river)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []entity.Post
	decode(t, rec, &feed)
	count := 0
	for _, p := range feed {
		if p.ID == post.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestGuardedRoutesNeedSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/posts", "/groups", "/users/me", "/auth/session"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Unauthorized", errorOf(t, rec), path)
	}

	rec := s.do(t, http.MethodGet, "/posts", "", &http.Cookie{Name: auth.CookieName, Value: "forged.token.value"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenIsAccepted(t *testing.T) {
	s := newTestServer(t)
	token, _, err := s.auth.IssueSession(auth.Principal{UserID: 7, Username: "river"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"id":7,"username":"river"}}`, rec.Body.String())
}

func TestRegisterLoginLogout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", `{"username":"brook","email":"brook@example.com","password":"still-water","name":"Brook"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	var registered struct {
		User entity.User `json:"user"`
	}
	decode(t, rec, &registered)
	assert.Equal(t, "brook", registered.User.Username)

	rec = s.do(t, http.MethodPost, "/auth/register", `{"username":"brook","email":"other@example.com","password":"x"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "This username is already in use", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/auth/register", `{"username":"brook2","email":"","password":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", `{"username":"brook","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/auth/login", `{"username":"brook@example.com","password":"still-water"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, "/", session.Path)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	rec = s.do(t, http.MethodGet, "/users/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"brook@example.com"`)

	rec = s.do(t, http.MethodPost, "/auth/logout", "", session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/me", "", session)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")

	rec := s.do(t, http.MethodPut, "/users/me", `{"bio":"one breath at a time"}`, river)
	require.Equal(t, http.StatusOK, rec.Code)

	var user entity.User
	decode(t, rec, &user)
	require.NotNil(t, user.Bio)
	assert.Equal(t, "one breath at a time", *user.Bio)
	assert.Nil(t, user.Name)
}

func TestPostRoutesValidateIDs(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")

	for _, path := range []string{"/posts/abc", "/posts/0", "/posts/-3"} {
		rec := s.do(t, http.MethodGet, path, "", river)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Invalid post ID", errorOf(t, rec), path)
	}

	rec := s.do(t, http.MethodGet, "/posts/404", "", river)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", errorOf(t, rec))
}

func TestLikeTwice(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")
	lake := s.cookieFor(t, 8, "lake")

	rec := s.do(t, http.MethodPost, "/posts", `{"content":"like me"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post entity.Post
	decode(t, rec, &post)
	path := "/posts/" + itoa(post.ID) + "/like"

	rec = s.do(t, http.MethodPost, path, "", lake)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Post liked","likes":1}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, path, "", lake)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Post already liked","likes":1}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/posts/999/like", "", lake)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePostByOtherUserIsForbidden(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")
	lake := s.cookieFor(t, 8, "lake")

	rec := s.do(t, http.MethodPost, "/posts", `{"content":"mine"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post entity.Post
	decode(t, rec, &post)
	path := "/posts/" + itoa(post.ID)

	rec = s.do(t, http.MethodDelete, path, "", lake)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You can only delete your own posts", errorOf(t, rec))

	rec = s.do(t, http.MethodGet, path, "", lake)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, path, "", river)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Post deleted"}`, rec.Body.String())
}

func TestComments(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")

	rec := s.do(t, http.MethodPost, "/posts", `{"content":"talk"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post entity.Post
	decode(t, rec, &post)
	path := "/posts/" + itoa(post.ID) + "/comments"

	rec = s.do(t, http.MethodPost, path, `{"content":""}`, river)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Comment content is required", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, path, `{"content":"listening"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, path, "", river)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []entity.Comment
	decode(t, rec, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "river", comments[0].User.Username)

	rec = s.do(t, http.MethodGet, "/posts/999/comments", "", river)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupLifecycle(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")
	lake := s.cookieFor(t, 8, "lake")

	rec := s.do(t, http.MethodPost, "/groups", `{"name":"Anxiety","description":"Share and listen"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var group entity.Group
	decode(t, rec, &group)
	assert.Equal(t, 1, group.MemberCount)
	path := "/groups/" + itoa(group.ID)

	rec = s.do(t, http.MethodGet, path, "", lake)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Group    entity.Group `json:"group"`
		IsMember bool         `json:"is_member"`
	}
	decode(t, rec, &view)
	assert.False(t, view.IsMember)
	assert.Equal(t, "Anxiety", view.Group.Name)

	rec = s.do(t, http.MethodGet, path+"/messages", "", lake)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You must be a member to access this group", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, path+"/join", "", lake)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Successfully joined group"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, path+"/join", "", lake)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Already a member of this group"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, path+"/messages", `{"content":"glad to be here"}`, lake)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, path+"/messages", "", river)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []entity.GroupMessage
	decode(t, rec, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "lake", messages[0].User.Username)

	rec = s.do(t, http.MethodGet, "/groups/999/messages", "", river)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Group not found", errorOf(t, rec))

	rec = s.do(t, http.MethodDelete, path, "", lake)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, path, "", river)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Group deleted successfully"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, path, "", river)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidPayload(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/posts", `{"content":`, s.cookieFor(t, 7, "river"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request payload", errorOf(t, rec))
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")
	s.store.Err = testutil.ErrStore

	rec := s.do(t, http.MethodGet, "/groups", "", river)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", errorOf(t, rec))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestChatStreamPushesNewMessages(t *testing.T) {
	s := newTestServer(t)
	river := s.cookieFor(t, 7, "river")
	group, err := s.store.CreateGroupWithCreator(context.Background(), "Sleep", "Night owls", 7)
	require.NoError(t, err)

	srv := httptest.NewServer(s.e)
	defer srv.Close()

	header := http.Header{}
	header.Add("Cookie", river.String())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/groups/" + itoa(group.ID) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return s.hub.Subscribers(group.ID) == 1 }, time.Second, 10*time.Millisecond)

	rec := s.do(t, http.MethodPost, "/groups/"+itoa(group.ID)+"/messages", `{"content":"anyone awake?"}`, river)
	require.Equal(t, http.StatusCreated, rec.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var pushed entity.GroupMessage
	require.NoError(t, json.Unmarshal(raw, &pushed))
	assert.Equal(t, "anyone awake?", pushed.Content)
	assert.Equal(t, group.ID, pushed.GroupID)
}

func TestChatStreamRefusesNonMembers(t *testing.T) {
	s := newTestServer(t)
	group, err := s.store.CreateGroupWithCreator(context.Background(), "Sleep", "Night owls", 7)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/groups/"+itoa(group.ID)+"/ws", "", s.cookieFor(t, 8, "lake"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, s.hub.Subscribers(group.ID))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestRateLimiterAnswers429(t *testing.T) {
	e := NewServer(ServerOptions{Logger: zerolog.Nop(), RateLimitRPS: 0.001, RateLimitBurst: 1})
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())

	// A client that cannot be identified is throttled the same way.
	cfg := rateLimiterConfig(ServerOptions{RateLimitRPS: 1, RateLimitBurst: 1})
	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ping", nil), rec)
	require.NoError(t, cfg.ErrorHandler(c, echo.ErrForbidden))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
