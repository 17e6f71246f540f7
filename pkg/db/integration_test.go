package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressline/articles-service/pkg/blog"
)

const integrationTestPrefix = "db:integration_test"

// Integration tests use DATABASE_URL (e.g. .../articles_test on platform
// Postgres). Create the database once with 'articles-service ensure-db'.

func setupIntegration(t *testing.T) (context.Context, *ArticleStore, *CommentStore) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skipf("%s - DATABASE_URL not set, skipping", integrationTestPrefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatalf("%s - NewPool failed: %v", integrationTestPrefix, err)
	}
	t.Cleanup(pool.Close)

	migrationPath := "migrations"
	if _, err := os.Stat(migrationPath); os.IsNotExist(err) {
		migrationPath = filepath.Join("..", "..", "migrations")
	}
	migrationSQL, err := LoadMigrationFiles(migrationPath)
	if err != nil {
		t.Fatalf("%s - LoadMigrationFiles failed: %v", integrationTestPrefix, err)
	}
	if err := RunMigrations(ctx, pool, migrationSQL); err != nil {
		t.Fatalf("%s - RunMigrations failed: %v", integrationTestPrefix, err)
	}
	if err := ClearBlog(ctx, pool); err != nil {
		t.Fatalf("%s - ClearBlog failed: %v", integrationTestPrefix, err)
	}

	return ctx, NewArticleStore(pool), NewCommentStore(pool)
}

func TestIntegration_ArticleStore_CRUD(t *testing.T) {
	ctx, articles, _ := setupIntegration(t)

	created, err := articles.Create(ctx, &blog.Article{Title: "T", Author: "A", Content: "C", Created: time.Now().UTC()})
	if err != nil {
		t.Fatalf("%s - Create failed: %v", integrationTestPrefix, err)
	}
	if created.ID == 0 {
		t.Error("expected an assigned id")
	}

	got, err := articles.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("%s - Get failed: %v", integrationTestPrefix, err)
	}
	if got == nil || got.Title != "T" {
		t.Fatalf("%s - Get returned %+v", integrationTestPrefix, got)
	}

	exists, err := articles.Exists(ctx, "title", "T")
	if err != nil {
		t.Fatalf("%s - Exists failed: %v", integrationTestPrefix, err)
	}
	if !exists {
		t.Error("expected the title to exist")
	}
	if _, err := articles.Exists(ctx, "id; DROP TABLE articles", "x"); err == nil {
		t.Error("expected an error for an unknown property")
	}

	got.Title = "T2"
	got.Author = "should not change"
	updated, err := articles.Update(ctx, got)
	if err != nil {
		t.Fatalf("%s - Update failed: %v", integrationTestPrefix, err)
	}
	if updated.Title != "T2" {
		t.Errorf("Title = %q", updated.Title)
	}
	if updated.Author != "A" {
		t.Errorf("author column must not be updated, got %q", updated.Author)
	}

	if missing, err := articles.Update(ctx, &blog.Article{ID: 999999, Title: "x"}); err != nil || missing != nil {
		t.Errorf("update of a missing row should return nil, nil; got %+v, %v", missing, err)
	}

	removed, err := articles.Delete(ctx, created.ID)
	if err != nil || !removed {
		t.Fatalf("%s - Delete failed: removed=%t err=%v", integrationTestPrefix, removed, err)
	}
	removed, err = articles.Delete(ctx, created.ID)
	if err != nil || removed {
		t.Errorf("second delete must be a no-op: removed=%t err=%v", removed, err)
	}
}

func TestIntegration_CommentStore_CRUDAndCascade(t *testing.T) {
	ctx, articles, comments := setupIntegration(t)

	article, err := articles.Create(ctx, &blog.Article{Title: "parent", Author: "A", Content: "C", Created: time.Now().UTC()})
	if err != nil {
		t.Fatalf("%s - create article failed: %v", integrationTestPrefix, err)
	}

	comment, err := comments.Create(ctx, &blog.Comment{ArticleID: article.ID, Author: "bob", Content: "hi", Created: time.Now().UTC()})
	if err != nil {
		t.Fatalf("%s - create comment failed: %v", integrationTestPrefix, err)
	}

	list, err := comments.ListForArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("%s - ListForArticle failed: %v", integrationTestPrefix, err)
	}
	if len(list) != 1 || list[0].ID != comment.ID {
		t.Fatalf("%s - unexpected comments: %v", integrationTestPrefix, list)
	}

	comment.Content = "edited"
	updated, err := comments.Update(ctx, comment)
	if err != nil || updated == nil || updated.Content != "edited" {
		t.Fatalf("%s - update comment failed: %+v, %v", integrationTestPrefix, updated, err)
	}

	// Deleting the article removes its comments via the FK cascade.
	if _, err := articles.Delete(ctx, article.ID); err != nil {
		t.Fatalf("%s - delete article failed: %v", integrationTestPrefix, err)
	}
	got, err := comments.Get(ctx, comment.ID)
	if err != nil {
		t.Fatalf("%s - Get comment failed: %v", integrationTestPrefix, err)
	}
	if got != nil {
		t.Error("comment survived its article's deletion")
	}
}
