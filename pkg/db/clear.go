package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearBlog truncates the comments and articles tables in dependency order.
// Schema is preserved; only data is removed. RESTART IDENTITY resets
// sequences.
func ClearBlog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing blog tables", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		comments,
		articles
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Blog tables cleared", clearLogPrefix))
	return nil
}
