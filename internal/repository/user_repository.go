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

const userColumns = `id, username, email, password, name, profile_picture, bio, created_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	user := &entity.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	err := r.db.GetContext(ctx, user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return user, nil
}

// GetUserByIdentifier finds the user whose username or email equals identifier.
func (r *UserRepository) GetUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	user := &entity.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ? LIMIT 1`
	err := r.db.GetContext(ctx, user, query, identifier, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user by identifier: %w", err)
	}

	return user, nil
}

// FindByUsernameOrEmail returns every user holding either the username or the email.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) ([]entity.User, error) {
	var users []entity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`
	if err := r.db.SelectContext(ctx, &users, query, username, email); err != nil {
		return nil, fmt.Errorf("find users by username or email: %w", err)
	}

	return users, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `INSERT INTO users (username, email, password, name) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, user.Username, user.Email, user.Password, user.Name)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperror.Conflict("This username or email is already in use")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetUserByID(ctx, id)
}

// UpdateProfile overwrites only the non-nil fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, profilePicture, bio *string) (*entity.User, error) {
	query := `UPDATE users SET name = COALESCE(?, name), profile_picture = COALESCE(?, profile_picture), bio = COALESCE(?, bio) WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, name, profilePicture, bio, id); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	return r.GetUserByID(ctx, id)
}
