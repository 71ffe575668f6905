package service

import (
	"context"
	"strings"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
)

type GroupService struct {
	groups   GroupStore
	messages MessageStore
	guard    *auth.Guard
	pub      events.Publisher
}

// NewGroupService creates a new instance of GroupService.
func NewGroupService(groups GroupStore, messages MessageStore, pub events.Publisher) *GroupService {
	return &GroupService{
		groups:   groups,
		messages: messages,
		guard:    auth.NewGuard(groups),
		pub:      pub,
	}
}

func (s *GroupService) ListGroups(ctx context.Context) ([]*entity.Group, error) {
	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		return nil, wrapErr(err, "Error fetching groups")
	}
	return groups, nil
}

type GroupView struct {
	Group    *entity.Group `json:"group"`
	IsMember bool          `json:"is_member"`
}

func (s *GroupService) GetGroup(ctx context.Context, groupID, userID int64) (*GroupView, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, wrapErr(err, "Error fetching group")
	}

	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, wrapErr(err, "Error fetching group")
	}

	return &GroupView{Group: group, IsMember: member}, nil
}

// support_groups.name width.
const maxGroupNameLen = 100

// CreateGroup creates the group with its creator as the first member.
func (s *GroupService) CreateGroup(ctx context.Context, userID int64, name, description string) (*entity.Group, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return nil, apperror.Validation("Group name and description are required")
	}
	if err := checkLen("Group name", name, maxGroupNameLen); err != nil {
		return nil, err
	}

	group, err := s.groups.CreateGroupWithCreator(ctx, name, description, userID)
	if err != nil {
		return nil, wrapErr(err, "Error creating group")
	}

	publish(ctx, s.pub, events.GroupCreated, group.ID, group)
	return group, nil
}

// JoinGroup adds the user to the group. created is false when the user was already a member.
func (s *GroupService) JoinGroup(ctx context.Context, groupID, userID int64) (created bool, err error) {
	exists, err := s.groups.GroupExists(ctx, groupID)
	if err != nil {
		return false, wrapErr(err, "Error joining group")
	}
	if !exists {
		return false, apperror.NotFound("Group not found")
	}

	created, err = s.groups.AddMember(ctx, groupID, userID)
	if err != nil {
		return false, wrapErr(err, "Error joining group")
	}

	if created {
		publish(ctx, s.pub, events.GroupJoined, groupID, map[string]int64{
			"group_id": groupID,
			"user_id":  userID,
		})
	}
	return created, nil
}

// DeleteGroup removes the group with its members and messages. Only the creator may delete it.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, userID int64) error {
	creatorID, err := s.groups.GetGroupCreator(ctx, groupID)
	if err != nil {
		return wrapErr(err, "Error deleting group")
	}
	if err := auth.RequireOwnership(creatorID, userID, "Only the group creator can delete this group"); err != nil {
		return err
	}

	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		return wrapErr(err, "Error deleting group")
	}

	publish(ctx, s.pub, events.GroupDeleted, groupID, map[string]int64{"id": groupID})
	return nil
}

// RequireMember answers NotFound for a missing group and Forbidden for a non-member.
func (s *GroupService) RequireMember(ctx context.Context, groupID, userID int64) error {
	return s.guard.RequireMembership(ctx, groupID, userID)
}

// ListMessages returns the group's chat history, oldest first. Members only.
func (s *GroupService) ListMessages(ctx context.Context, groupID, userID int64) ([]*entity.GroupMessage, error) {
	if err := s.RequireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListMessages(ctx, groupID)
	if err != nil {
		return nil, wrapErr(err, "Error fetching messages")
	}
	return messages, nil
}

// PostMessage stores a chat message and announces it to the group's live subscribers.
func (s *GroupService) PostMessage(ctx context.Context, groupID, userID int64, content string) (*entity.GroupMessage, error) {
	if err := s.RequireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("Message content is required")
	}

	msg, err := s.messages.CreateMessage(ctx, groupID, userID, content)
	if err != nil {
		return nil, wrapErr(err, "Error creating message")
	}

	publish(ctx, s.pub, events.GroupMessageCreated, groupID, msg)
	return msg, nil
}
