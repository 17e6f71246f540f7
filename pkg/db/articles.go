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

const articlesLogPrefix = "db:articles"

// articleColumns are the properties Exists may filter on; anything else is a
// programming error, not a query.
var articleColumns = map[string]string{
	"title":  "title",
	"author": "author",
}

// ArticleStore is the Postgres-backed blog.ArticleStore.
type ArticleStore struct {
	pool *pgxpool.Pool
}

// NewArticleStore creates an ArticleStore over the given pool.
func NewArticleStore(pool *pgxpool.Pool) *ArticleStore {
	return &ArticleStore{pool: pool}
}

// List returns all articles, newest first.
func (s *ArticleStore) List(ctx context.Context) ([]blog.Article, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, author, content, created
		 FROM articles
		 ORDER BY created DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s - List failed: %w", articlesLogPrefix, err)
	}
	defer rows.Close()

	var articles []blog.Article
	for rows.Next() {
		var a blog.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Author, &a.Content, &a.Created); err != nil {
			return nil, fmt.Errorf("%s - List scan failed: %w", articlesLogPrefix, err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Get returns the article with the given id, or nil when absent.
func (s *ArticleStore) Get(ctx context.Context, id int64) (*blog.Article, error) {
	var a blog.Article
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, author, content, created
		 FROM articles
		 WHERE id = $1`, id).Scan(&a.ID, &a.Title, &a.Author, &a.Content, &a.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - Get failed: %w", articlesLogPrefix, err)
	}
	return &a, nil
}

// Create inserts the article and returns it with its assigned id.
func (s *ArticleStore) Create(ctx context.Context, a *blog.Article) (*blog.Article, error) {
	slog.Debug(fmt.Sprintf("%s - Create title=%q", articlesLogPrefix, a.Title))

	var created blog.Article
	err := s.pool.QueryRow(ctx,
		`INSERT INTO articles (title, author, content, created)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, title, author, content, created`,
		a.Title, a.Author, a.Content, a.Created).
		Scan(&created.ID, &created.Title, &created.Author, &created.Content, &created.Created)
	if err != nil {
		return nil, fmt.Errorf("%s - Create failed: %w", articlesLogPrefix, err)
	}
	return &created, nil
}

// Update replaces the article's mutable columns; returns nil when absent.
func (s *ArticleStore) Update(ctx context.Context, a *blog.Article) (*blog.Article, error) {
	slog.Debug(fmt.Sprintf("%s - Update id=%d", articlesLogPrefix, a.ID))

	var updated blog.Article
	err := s.pool.QueryRow(ctx,
		`UPDATE articles
		 SET title = $2, content = $3
		 WHERE id = $1
		 RETURNING id, title, author, content, created`,
		a.ID, a.Title, a.Content).
		Scan(&updated.ID, &updated.Title, &updated.Author, &updated.Content, &updated.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - Update failed: %w", articlesLogPrefix, err)
	}
	return &updated, nil
}

// Delete removes the article (and its comments, via the FK cascade) and
// reports whether a row was removed.
func (s *ArticleStore) Delete(ctx context.Context, id int64) (bool, error) {
	slog.Debug(fmt.Sprintf("%s - Delete id=%d", articlesLogPrefix, id))

	tag, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s - Delete failed: %w", articlesLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists reports whether any article has the given value for the named
// property.
func (s *ArticleStore) Exists(ctx context.Context, property, value string) (bool, error) {
	column, ok := articleColumns[property]
	if !ok {
		return false, fmt.Errorf("%s - unknown property %q", articlesLogPrefix, property)
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM articles WHERE %s = $1)`, column), value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s - Exists failed: %w", articlesLogPrefix, err)
	}
	return exists, nil
}
