package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/jmoiron/sqlx"
)

const groupSelect = `
	SELECT
		g.id, g.name, g.description, g.created_by, g.created_at,
		(SELECT COUNT(*) FROM group_members WHERE group_id = g.id) AS member_count
	FROM support_groups g`

type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db}
}

// ListGroups returns every group, newest first.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]*entity.Group, error) {
	groups := []*entity.Group{}
	if err := r.db.SelectContext(ctx, &groups, groupSelect+` ORDER BY g.created_at DESC, g.id DESC`); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) GetGroupByID(ctx context.Context, id int64) (*entity.Group, error) {
	group := &entity.Group{}
	if err := r.db.GetContext(ctx, group, groupSelect+` WHERE g.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Group not found")
		}
		return nil, fmt.Errorf("get group %d: %w", id, err)
	}
	return group, nil
}

func (r *GroupRepository) GetGroupCreator(ctx context.Context, id int64) (int64, error) {
	var creatorID int64
	if err := r.db.QueryRowContext(ctx, `SELECT created_by FROM support_groups WHERE id = ?`, id).Scan(&creatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("Group not found")
		}
		return 0, fmt.Errorf("get group creator %d: %w", id, err)
	}
	return creatorID, nil
}

func (r *GroupRepository) GroupExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM support_groups WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check group %d: %w", id, err)
	}
	return exists, nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var member bool
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)`
	if err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("check membership of user %d in group %d: %w", userID, groupID, err)
	}
	return member, nil
}

// CreateGroupWithCreator inserts the group and the creator's membership in one transaction.
func (r *GroupRepository) CreateGroupWithCreator(ctx context.Context, name, description string, creatorID int64) (*entity.Group, error) {
	// Start a transaction
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO support_groups (name, description, created_by) VALUES (?, ?, ?)`, name, description, creatorID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert group: %w", err)
	}

	groupID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`, groupID, creatorID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}

	group := &entity.Group{}
	if err := tx.GetContext(ctx, group, groupSelect+` WHERE g.id = ?`, groupID); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("get group %d: %w", groupID, err)
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return group, nil
}

// AddMember joins the user to the group once. created is false when the user was already a member.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID int64) (created bool, err error) {
	query := `INSERT INTO group_members (group_id, user_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id`
	res, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("insert membership: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteGroup removes the group with all of its members and messages.
func (r *GroupRepository) DeleteGroup(ctx context.Context, id int64) error {
	// Start a transaction
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM group_messages WHERE group_id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete messages of group %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete members of group %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM support_groups WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete group %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return apperror.NotFound("Group not found")
	}

	return tx.Commit()
}
