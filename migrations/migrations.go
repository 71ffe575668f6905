package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// statements are applied in order; later tables reference earlier ones.
var statements = []struct {
	table string
	query string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(50) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			name VARCHAR(100) NULL,
			profile_picture VARCHAR(512) NULL,
			bio TEXT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uniq_users_username (username),
			UNIQUE KEY uniq_users_email (email)
		);
	`},
	{"posts", `
		CREATE TABLE IF NOT EXISTS posts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_posts_created_at (created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
	{"comments", `
		CREATE TABLE IF NOT EXISTS comments (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			post_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_comments_post_created (post_id, created_at),
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
	{"likes", `
		CREATE TABLE IF NOT EXISTS likes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			post_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uniq_likes_post_user (post_id, user_id),
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
	{"support_groups", `
		CREATE TABLE IF NOT EXISTS support_groups (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description TEXT NOT NULL,
			created_by BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_support_groups_created_at (created_at),
			FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
	{"group_members", `
		CREATE TABLE IF NOT EXISTS group_members (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			group_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uniq_group_members_group_user (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES support_groups(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
	{"group_messages", `
		CREATE TABLE IF NOT EXISTS group_messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			group_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_group_messages_group_created (group_id, created_at),
			FOREIGN KEY (group_id) REFERENCES support_groups(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
}

// AutoMigrate creates every table if it does not exist, retrying each statement up to retries times.
func AutoMigrate(ctx context.Context, db *sql.DB, retries int) error {
	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt.query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				select {
				case <-ctx.Done():
					return fmt.Errorf("migrate %s: %w", stmt.table, ctx.Err())
				case <-time.After(1 * time.Second):
				}
				_, err = db.ExecContext(ctx, stmt.query)
				if err == nil {
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("migrate %s: %w", stmt.table, err)
		}
	}
	return nil
}
