// Package testutil provides in-memory stores and recording fakes for service and handler tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
)

// MockStore is an in-memory stand-in for the MySQL repositories.
// Every insert advances the clock by one second so orderings are deterministic.
type MockStore struct {
	mu       sync.RWMutex
	clock    time.Time
	nextID   int64
	users    map[int64]*entity.User
	posts    map[int64]*entity.Post
	comments map[int64]*entity.Comment
	likes    map[[2]int64]struct{}
	groups   map[int64]*entity.Group
	members  map[[2]int64]struct{}
	messages map[int64]*entity.GroupMessage

	// Err, when set, is returned by every call.
	Err error
}

func NewMockStore() *MockStore {
	return &MockStore{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[int64]*entity.User),
		posts:    make(map[int64]*entity.Post),
		comments: make(map[int64]*entity.Comment),
		likes:    make(map[[2]int64]struct{}),
		groups:   make(map[int64]*entity.Group),
		members:  make(map[[2]int64]struct{}),
		messages: make(map[int64]*entity.GroupMessage),
	}
}

func (m *MockStore) tick() (int64, time.Time) {
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	return m.nextID, m.clock
}

func (m *MockStore) summary(userID int64) *entity.UserSummary {
	if u, ok := m.users[userID]; ok {
		return u.Summary()
	}
	return &entity.UserSummary{ID: userID}
}

// AddUser stores u with the given id, bypassing uniqueness checks.
func (m *MockStore) AddUser(u entity.User) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID > m.nextID {
		m.nextID = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.clock
	}
	m.users[u.ID] = &u
	return &u
}

// Counts reports rows per table, for asserting that nothing was written.
func (m *MockStore) Counts() (users, posts, likes, members int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), len(m.posts), len(m.likes), len(m.members)
}

func (m *MockStore) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("User not found")
	}
	copied := *u
	return &copied, nil
}

func (m *MockStore) GetUserByIdentifier(_ context.Context, identifier string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (m *MockStore) FindByUsernameOrEmail(_ context.Context, username, email string) ([]entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	// Case-insensitive, like the MySQL default collation.
	var found []entity.User
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			found = append(found, *u)
		}
	}
	return found, nil
}

func (m *MockStore) CreateUser(_ context.Context, user *entity.User) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, apperror.Conflict("This username or email is already in use")
		}
	}
	created := *user
	created.ID, created.CreatedAt = m.tick()
	m.users[created.ID] = &created
	copied := created
	return &copied, nil
}

func (m *MockStore) UpdateProfile(ctx context.Context, id int64, name, profilePicture, bio *string) (*entity.User, error) {
	m.mu.Lock()
	if m.Err != nil {
		m.mu.Unlock()
		return nil, m.Err
	}
	if u, ok := m.users[id]; ok {
		if name != nil {
			u.Name = name
		}
		if profilePicture != nil {
			u.ProfilePicture = profilePicture
		}
		if bio != nil {
			u.Bio = bio
		}
	}
	m.mu.Unlock()
	return m.GetUserByID(ctx, id)
}

func (m *MockStore) postLocked(p *entity.Post) *entity.Post {
	copied := *p
	copied.LikesCount = 0
	for k := range m.likes {
		if k[0] == p.ID {
			copied.LikesCount++
		}
	}
	copied.CommentsCount = 0
	for _, c := range m.comments {
		if c.PostID == p.ID {
			copied.CommentsCount++
		}
	}
	copied.User = m.summary(p.UserID)
	return &copied
}

func (m *MockStore) ListPosts(_ context.Context) ([]*entity.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	posts := make([]*entity.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, m.postLocked(p))
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts, nil
}

func (m *MockStore) GetPostByID(_ context.Context, id int64) (*entity.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("Post not found")
	}
	return m.postLocked(p), nil
}

func (m *MockStore) PostExists(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.posts[id]
	return ok, nil
}

func (m *MockStore) GetPostOwner(_ context.Context, id int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	p, ok := m.posts[id]
	if !ok {
		return 0, apperror.NotFound("Post not found")
	}
	return p.UserID, nil
}

func (m *MockStore) CreatePost(_ context.Context, userID int64, content string) (*entity.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p := &entity.Post{UserID: userID, Content: content}
	p.ID, p.CreatedAt = m.tick()
	m.posts[p.ID] = p
	return m.postLocked(p), nil
}

func (m *MockStore) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.posts[id]; !ok {
		return apperror.NotFound("Post not found")
	}
	for k := range m.likes {
		if k[0] == id {
			delete(m.likes, k)
		}
	}
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	delete(m.posts, id)
	return nil
}

func (m *MockStore) AddLike(_ context.Context, postID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	key := [2]int64{postID, userID}
	if _, ok := m.likes[key]; ok {
		return false, nil
	}
	m.likes[key] = struct{}{}
	return true, nil
}

func (m *MockStore) CountLikes(_ context.Context, postID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for k := range m.likes {
		if k[0] == postID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) ListComments(_ context.Context, postID int64) ([]*entity.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	comments := []*entity.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			copied := *c
			copied.User = m.summary(c.UserID)
			comments = append(comments, &copied)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (m *MockStore) CreateComment(_ context.Context, postID, userID int64, content string) (*entity.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c := &entity.Comment{PostID: postID, UserID: userID, Content: content}
	c.ID, c.CreatedAt = m.tick()
	m.comments[c.ID] = c
	copied := *c
	copied.User = m.summary(userID)
	return &copied, nil
}

func (m *MockStore) groupLocked(g *entity.Group) *entity.Group {
	copied := *g
	copied.MemberCount = 0
	for k := range m.members {
		if k[0] == g.ID {
			copied.MemberCount++
		}
	}
	return &copied
}

func (m *MockStore) ListGroups(_ context.Context) ([]*entity.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	groups := []*entity.Group{}
	for _, g := range m.groups {
		groups = append(groups, m.groupLocked(g))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID > groups[j].ID })
	return groups, nil
}

func (m *MockStore) GetGroupByID(_ context.Context, id int64) (*entity.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	g, ok := m.groups[id]
	if !ok {
		return nil, apperror.NotFound("Group not found")
	}
	return m.groupLocked(g), nil
}

func (m *MockStore) GetGroupCreator(_ context.Context, id int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	g, ok := m.groups[id]
	if !ok {
		return 0, apperror.NotFound("Group not found")
	}
	return g.CreatedBy, nil
}

func (m *MockStore) GroupExists(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.groups[id]
	return ok, nil
}

func (m *MockStore) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.members[[2]int64{groupID, userID}]
	return ok, nil
}

func (m *MockStore) CreateGroupWithCreator(_ context.Context, name, description string, creatorID int64) (*entity.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	g := &entity.Group{Name: name, Description: description, CreatedBy: creatorID}
	g.ID, g.CreatedAt = m.tick()
	m.groups[g.ID] = g
	m.members[[2]int64{g.ID, creatorID}] = struct{}{}
	return m.groupLocked(g), nil
}

func (m *MockStore) AddMember(_ context.Context, groupID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	key := [2]int64{groupID, userID}
	if _, ok := m.members[key]; ok {
		return false, nil
	}
	m.members[key] = struct{}{}
	return true, nil
}

func (m *MockStore) DeleteGroup(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.groups[id]; !ok {
		return apperror.NotFound("Group not found")
	}
	for k := range m.members {
		if k[0] == id {
			delete(m.members, k)
		}
	}
	for mid, msg := range m.messages {
		if msg.GroupID == id {
			delete(m.messages, mid)
		}
	}
	delete(m.groups, id)
	return nil
}

func (m *MockStore) ListMessages(_ context.Context, groupID int64) ([]*entity.GroupMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	messages := []*entity.GroupMessage{}
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			copied := *msg
			copied.User = m.summary(msg.UserID)
			messages = append(messages, &copied)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func (m *MockStore) CreateMessage(_ context.Context, groupID, userID int64, content string) (*entity.GroupMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	msg := &entity.GroupMessage{GroupID: groupID, UserID: userID, Content: content}
	msg.ID, msg.CreatedAt = m.tick()
	m.messages[msg.ID] = msg
	copied := *msg
	copied.User = m.summary(userID)
	return &copied, nil
}

// MockFeedCache is an in-memory generational feed cache that counts hits and invalidations.
type MockFeedCache struct {
	mu            sync.Mutex
	gen           int64
	feeds         map[int64][]*entity.Post
	Hits          int
	Invalidations int
}

func (c *MockFeedCache) FeedGeneration(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *MockFeedCache) GetFeed(_ context.Context, gen int64) ([]*entity.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	posts, ok := c.feeds[gen]
	if !ok {
		return nil, false, nil
	}
	c.Hits++
	return posts, true, nil
}

func (c *MockFeedCache) SetFeed(_ context.Context, gen int64, posts []*entity.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feeds == nil {
		c.feeds = make(map[int64][]*entity.Post)
	}
	c.feeds[gen] = posts
	return nil
}

func (c *MockFeedCache) InvalidateFeed(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.Invalidations++
	return nil
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *MockPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *MockPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Types lists the published event types in order.
func (p *MockPublisher) Types() []events.Type {
	var types []events.Type
	for _, e := range p.Events() {
		types = append(types, e.Type)
	}
	return types
}

// ErrStore is a convenience failure for MockStore.Err.
var ErrStore = errors.New("store unavailable")

func Ptr(s string) *string {
	return &s
}
