package blog

import "context"

// ArticleStore is the storage abstraction for articles. Get and Update
// return nil (no error) when the record does not exist; Delete reports
// whether a record was actually removed.
type ArticleStore interface {
	List(ctx context.Context) ([]Article, error)
	Get(ctx context.Context, id int64) (*Article, error)
	Create(ctx context.Context, a *Article) (*Article, error)
	Update(ctx context.Context, a *Article) (*Article, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// Exists reports whether any article has the given value for the named
	// property. Used by validators for uniqueness checks.
	Exists(ctx context.Context, property, value string) (bool, error)
}

// CommentStore is the storage abstraction for comments.
type CommentStore interface {
	ListForArticle(ctx context.Context, articleID int64) ([]Comment, error)
	Get(ctx context.Context, id int64) (*Comment, error)
	Create(ctx context.Context, c *Comment) (*Comment, error)
	Update(ctx context.Context, c *Comment) (*Comment, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
