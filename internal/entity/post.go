package entity

import "time"

type Post struct {
	ID            int64        `json:"id" db:"id"`
	UserID        int64        `json:"user_id" db:"user_id"`
	Content       string       `json:"content" db:"content"`
	LikesCount    int          `json:"likes_count" db:"likes_count"`
	CommentsCount int          `json:"comments_count" db:"comments_count"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	User          *UserSummary `json:"user,omitempty" db:"-"`
}

type Comment struct {
	ID        int64        `json:"id" db:"id"`
	PostID    int64        `json:"post_id" db:"post_id"`
	UserID    int64        `json:"user_id" db:"user_id"`
	Content   string       `json:"content" db:"content"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	User      *UserSummary `json:"user,omitempty" db:"-"`
}

// Like is unique per (PostID, UserID).
type Like struct {
	ID        int64     `json:"id" db:"id"`
	PostID    int64     `json:"post_id" db:"post_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
