package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open 打开 MySQL 连接池（用户目录、拉黑关系、拦截记录）
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		nickname VARCHAR(128) NOT NULL DEFAULT '',
		code CHAR(8) NOT NULL,
		password VARCHAR(255) NOT NULL,
		bio TEXT,
		blocked_words TEXT,
		created_at BIGINT NOT NULL,
		UNIQUE KEY uniq_email (email),
		UNIQUE KEY uniq_code (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS blocked_users (
		user_id VARCHAR(64) NOT NULL,
		blocked_user_id VARCHAR(64) NOT NULL,
		blocked_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, blocked_user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS blocked_attempts (
		id VARCHAR(64) PRIMARY KEY,
		conversation_id VARCHAR(160) NOT NULL,
		sender_id VARCHAR(64) NOT NULL,
		receiver_id VARCHAR(64) NOT NULL,
		blocked_word VARCHAR(255) NOT NULL,
		content TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		action VARCHAR(16) NOT NULL DEFAULT '',
		KEY idx_receiver_action (receiver_id, action)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate 建表，可重复执行
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
