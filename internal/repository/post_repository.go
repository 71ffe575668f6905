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

const postSelect = `
	SELECT
		p.id, p.user_id, p.content, p.created_at,
		u.username, u.name, u.profile_picture,
		(SELECT COUNT(*) FROM likes WHERE post_id = p.id) AS likes_count,
		(SELECT COUNT(*) FROM comments WHERE post_id = p.id) AS comments_count
	FROM posts p
	JOIN users u ON p.user_id = u.id`

const commentSelect = `
	SELECT
		c.id, c.post_id, c.user_id, c.content, c.created_at,
		u.username, u.name, u.profile_picture
	FROM comments c
	JOIN users u ON c.user_id = u.id`

type postRow struct {
	entity.Post
	Username       string  `db:"username"`
	Name           *string `db:"name"`
	ProfilePicture *string `db:"profile_picture"`
}

func (r postRow) toEntity() *entity.Post {
	post := r.Post
	post.User = &entity.UserSummary{ID: post.UserID, Username: r.Username, Name: r.Name, ProfilePicture: r.ProfilePicture}
	return &post
}

type commentRow struct {
	entity.Comment
	Username       string  `db:"username"`
	Name           *string `db:"name"`
	ProfilePicture *string `db:"profile_picture"`
}

func (r commentRow) toEntity() *entity.Comment {
	comment := r.Comment
	comment.User = &entity.UserSummary{ID: comment.UserID, Username: r.Username, Name: r.Name, ProfilePicture: r.ProfilePicture}
	return &comment
}

type PostRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db}
}

// ListPosts returns the global feed, newest first.
func (r *PostRepository) ListPosts(ctx context.Context) ([]*entity.Post, error) {
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, postSelect+` ORDER BY p.created_at DESC, p.id DESC`); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]*entity.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toEntity())
	}
	return posts, nil
}

func (r *PostRepository) GetPostByID(ctx context.Context, id int64) (*entity.Post, error) {
	var row postRow
	if err := r.db.GetContext(ctx, &row, postSelect+` WHERE p.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Post not found")
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}

	return row.toEntity(), nil
}

func (r *PostRepository) PostExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check post %d: %w", id, err)
	}
	return exists, nil
}

// GetPostOwner returns the author id of the post.
func (r *PostRepository) GetPostOwner(ctx context.Context, id int64) (int64, error) {
	var ownerID int64
	if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = ?`, id).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("Post not found")
		}
		return 0, fmt.Errorf("get post owner %d: %w", id, err)
	}
	return ownerID, nil
}

func (r *PostRepository) CreatePost(ctx context.Context, userID int64, content string) (*entity.Post, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO posts (user_id, content) VALUES (?, ?)`, userID, content)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetPostByID(ctx, id)
}

// DeletePost removes the post together with its likes and comments.
func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	// Start a transaction
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete likes of post %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete comments of post %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return apperror.NotFound("Post not found")
	}

	return tx.Commit()
}

// AddLike records the like once. created is false when the user had already liked the post.
func (r *PostRepository) AddLike(ctx context.Context, postID, userID int64) (created bool, err error) {
	query := `INSERT INTO likes (post_id, user_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = id`
	res, err := r.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepository) CountLikes(ctx context.Context, postID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes of post %d: %w", postID, err)
	}
	return count, nil
}

// ListComments returns the post's comments, oldest first.
func (r *PostRepository) ListComments(ctx context.Context, postID int64) ([]*entity.Comment, error) {
	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, commentSelect+` WHERE c.post_id = ? ORDER BY c.created_at ASC, c.id ASC`, postID); err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}

	comments := make([]*entity.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toEntity())
	}
	return comments, nil
}

func (r *PostRepository) CreateComment(ctx context.Context, postID, userID int64, content string) (*entity.Comment, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO comments (post_id, user_id, content) VALUES (?, ?, ?)`, postID, userID, content)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var row commentRow
	if err := r.db.GetContext(ctx, &row, commentSelect+` WHERE c.id = ?`, id); err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return row.toEntity(), nil
}
