package entity

import "time"

type Group struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedBy   int64     `json:"created_by" db:"created_by"`
	MemberCount int       `json:"member_count" db:"member_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GroupMember is unique per (GroupID, UserID).
type GroupMember struct {
	ID        int64     `json:"id" db:"id"`
	GroupID   int64     `json:"group_id" db:"group_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type GroupMessage struct {
	ID        int64        `json:"id" db:"id"`
	GroupID   int64        `json:"group_id" db:"group_id"`
	UserID    int64        `json:"user_id" db:"user_id"`
	Content   string       `json:"content" db:"content"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	User      *UserSummary `json:"user,omitempty" db:"-"`
}
