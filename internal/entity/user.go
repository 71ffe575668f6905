package entity

import "time"

type User struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	Password       string    `json:"-" db:"password"` // bcrypt hash, never serialized
	Name           *string   `json:"name" db:"name"`
	ProfilePicture *string   `json:"profile_picture" db:"profile_picture"`
	Bio            *string   `json:"bio" db:"bio"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// UserSummary is the author projection attached to posts, comments and group messages.
type UserSummary struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profile_picture"`
}

// Summary projects u down to the fields other users may see.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
	}
}
