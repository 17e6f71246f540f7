package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressline/articles-service/pkg/blog"
)

const commentsLogPrefix = "db:comments"

// CommentStore is the Postgres-backed blog.CommentStore.
type CommentStore struct {
	pool *pgxpool.Pool
}

// NewCommentStore creates a CommentStore over the given pool.
func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// ListForArticle returns the comments linked to an article, newest first.
func (s *CommentStore) ListForArticle(ctx context.Context, articleID int64) ([]blog.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, article_id, author, content, created
		 FROM comments
		 WHERE article_id = $1
		 ORDER BY created DESC, id DESC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListForArticle failed: %w", commentsLogPrefix, err)
	}
	defer rows.Close()

	var comments []blog.Comment
	for rows.Next() {
		var c blog.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Author, &c.Content, &c.Created); err != nil {
			return nil, fmt.Errorf("%s - ListForArticle scan failed: %w", commentsLogPrefix, err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Get returns the comment with the given id, or nil when absent.
func (s *CommentStore) Get(ctx context.Context, id int64) (*blog.Comment, error) {
	var c blog.Comment
	err := s.pool.QueryRow(ctx,
		`SELECT id, article_id, author, content, created
		 FROM comments
		 WHERE id = $1`, id).Scan(&c.ID, &c.ArticleID, &c.Author, &c.Content, &c.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - Get failed: %w", commentsLogPrefix, err)
	}
	return &c, nil
}

// Create inserts the comment and returns it with its assigned id.
func (s *CommentStore) Create(ctx context.Context, c *blog.Comment) (*blog.Comment, error) {
	slog.Debug(fmt.Sprintf("%s - Create articleId=%d", commentsLogPrefix, c.ArticleID))

	var created blog.Comment
	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (article_id, author, content, created)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, article_id, author, content, created`,
		c.ArticleID, c.Author, c.Content, c.Created).
		Scan(&created.ID, &created.ArticleID, &created.Author, &created.Content, &created.Created)
	if err != nil {
		return nil, fmt.Errorf("%s - Create failed: %w", commentsLogPrefix, err)
	}
	return &created, nil
}

// Update replaces the comment's mutable column; returns nil when absent.
func (s *CommentStore) Update(ctx context.Context, c *blog.Comment) (*blog.Comment, error) {
	slog.Debug(fmt.Sprintf("%s - Update id=%d", commentsLogPrefix, c.ID))

	var updated blog.Comment
	err := s.pool.QueryRow(ctx,
		`UPDATE comments
		 SET content = $2
		 WHERE id = $1
		 RETURNING id, article_id, author, content, created`,
		c.ID, c.Content).
		Scan(&updated.ID, &updated.ArticleID, &updated.Author, &updated.Content, &updated.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - Update failed: %w", commentsLogPrefix, err)
	}
	return &updated, nil
}

// Delete removes the comment and reports whether a row was removed.
func (s *CommentStore) Delete(ctx context.Context, id int64) (bool, error) {
	slog.Debug(fmt.Sprintf("%s - Delete id=%d", commentsLogPrefix, id))

	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s - Delete failed: %w", commentsLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}
