package repository

import (
	"context"
	"fmt"

	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/jmoiron/sqlx"
)

const messageSelect = `
	SELECT
		m.id, m.group_id, m.user_id, m.content, m.created_at,
		u.username, u.name, u.profile_picture
	FROM group_messages m
	JOIN users u ON m.user_id = u.id`

type messageRow struct {
	entity.GroupMessage
	Username       string  `db:"username"`
	Name           *string `db:"name"`
	ProfilePicture *string `db:"profile_picture"`
}

func (r messageRow) toEntity() *entity.GroupMessage {
	msg := r.GroupMessage
	msg.User = &entity.UserSummary{ID: msg.UserID, Username: r.Username, Name: r.Name, ProfilePicture: r.ProfilePicture}
	return &msg
}

type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db}
}

// ListMessages returns the group's chat history, oldest first.
func (r *MessageRepository) ListMessages(ctx context.Context, groupID int64) ([]*entity.GroupMessage, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, messageSelect+` WHERE m.group_id = ? ORDER BY m.created_at ASC, m.id ASC`, groupID); err != nil {
		return nil, fmt.Errorf("list messages of group %d: %w", groupID, err)
	}

	messages := make([]*entity.GroupMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toEntity())
	}
	return messages, nil
}

func (r *MessageRepository) CreateMessage(ctx context.Context, groupID, userID int64, content string) (*entity.GroupMessage, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO group_messages (group_id, user_id, content) VALUES (?, ?, ?)`, groupID, userID, content)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var row messageRow
	if err := r.db.GetContext(ctx, &row, messageSelect+` WHERE m.id = ?`, id); err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return row.toEntity(), nil
}
