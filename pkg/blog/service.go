package blog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const serviceLogPrefix = "blog:service"

// Service performs validated writes against the article and comment stores.
// It is the single server-side mutation path; executors wrap its results in
// the wire envelope.
type Service struct {
	articles ArticleStore
	comments CommentStore

	articleValidator *ArticleValidator
	commentValidator *CommentValidator

	now func() time.Time
}

// NewService creates a Service over the given stores.
func NewService(articles ArticleStore, comments CommentStore) *Service {
	return &Service{
		articles:         articles,
		comments:         comments,
		articleValidator: &ArticleValidator{Articles: articles},
		commentValidator: &CommentValidator{Articles: articles},
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// ListArticles returns all articles, newest first.
func (s *Service) ListArticles(ctx context.Context) ([]Article, error) {
	return s.articles.List(ctx)
}

// GetArticle returns the article with the given id, or a NotFoundError.
func (s *Service) GetArticle(ctx context.Context, id int64) (*Article, error) {
	a, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Kind: "article", ID: id}
	}
	return a, nil
}

// CreateArticle validates and persists a new article.
func (s *Service) CreateArticle(ctx context.Context, a *Article) (*Article, error) {
	slog.Info(fmt.Sprintf("%s - CreateArticle title=%q author=%q", serviceLogPrefix, a.Title, a.Author))

	errs, err := s.articleValidator.Validate(ctx, a)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	a.ID = 0
	a.Created = s.now()
	return s.articles.Create(ctx, a)
}

// UpdateArticle persists changes to an existing article. Only the mutable
// fields (title, content) are patched; the author is fixed at creation and
// an empty patch field keeps the stored value. Validation runs against the
// merged record, so callers send just the id and the fields they change.
func (s *Service) UpdateArticle(ctx context.Context, a *Article) (*Article, error) {
	slog.Info(fmt.Sprintf("%s - UpdateArticle id=%d", serviceLogPrefix, a.ID))

	existing, err := s.articles.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{Kind: "article", ID: a.ID}
	}

	if a.Title != "" {
		existing.Title = a.Title
	}
	if a.Content != "" {
		existing.Content = a.Content
	}

	errs, err := s.articleValidator.Validate(ctx, existing)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return s.articles.Update(ctx, existing)
}

// DeleteArticle removes an article. Deleting an unknown id is a no-op
// success; the return value reports whether a record was actually removed.
func (s *Service) DeleteArticle(ctx context.Context, id int64) (bool, error) {
	slog.Info(fmt.Sprintf("%s - DeleteArticle id=%d", serviceLogPrefix, id))
	return s.articles.Delete(ctx, id)
}

// ListComments returns the comments for an article, newest first.
func (s *Service) ListComments(ctx context.Context, articleID int64) ([]Comment, error) {
	return s.comments.ListForArticle(ctx, articleID)
}

// CreateComment validates and persists a new comment.
func (s *Service) CreateComment(ctx context.Context, c *Comment) (*Comment, error) {
	slog.Info(fmt.Sprintf("%s - CreateComment articleId=%d author=%q", serviceLogPrefix, c.ArticleID, c.Author))

	errs, err := s.commentValidator.Validate(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	c.ID = 0
	c.Created = s.now()
	return s.comments.Create(ctx, c)
}

// UpdateComment persists changes to an existing comment. The author and
// article link are fixed at creation; only the content is patched, and the
// merged record is what gets validated. Callers send just the id and the
// new content.
func (s *Service) UpdateComment(ctx context.Context, c *Comment) (*Comment, error) {
	slog.Info(fmt.Sprintf("%s - UpdateComment id=%d", serviceLogPrefix, c.ID))

	existing, err := s.comments.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{Kind: "comment", ID: c.ID}
	}

	if c.Content != "" {
		existing.Content = c.Content
	}

	errs, err := s.commentValidator.Validate(ctx, existing)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return s.comments.Update(ctx, existing)
}

// DeleteComment removes a comment. Deleting an unknown id is a no-op success.
func (s *Service) DeleteComment(ctx context.Context, id int64) (bool, error) {
	slog.Info(fmt.Sprintf("%s - DeleteComment id=%d", serviceLogPrefix, id))
	return s.comments.Delete(ctx, id)
}
