package blog

import (
	"context"
	"sort"
	"sync"
)

// MemoryArticleStore is an in-memory ArticleStore. It backs tests and the
// database-less demo mode of the server.
type MemoryArticleStore struct {
	mu       sync.Mutex
	articles map[int64]Article
	nextID   int64
}

// NewMemoryArticleStore creates an empty in-memory article store.
func NewMemoryArticleStore() *MemoryArticleStore {
	return &MemoryArticleStore{articles: make(map[int64]Article), nextID: 1}
}

// List returns all articles, newest first.
func (s *MemoryArticleStore) List(_ context.Context) ([]Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get returns the article with the given id, or nil when absent.
func (s *MemoryArticleStore) Get(_ context.Context, id int64) (*Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Create assigns an id and stores the article.
func (s *MemoryArticleStore) Create(_ context.Context, a *Article) (*Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *a
	stored.ID = s.nextID
	s.nextID++
	s.articles[stored.ID] = stored
	return &stored, nil
}

// Update replaces the stored article; returns nil when absent.
func (s *MemoryArticleStore) Update(_ context.Context, a *Article) (*Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[a.ID]; !ok {
		return nil, nil
	}
	stored := *a
	s.articles[stored.ID] = stored
	return &stored, nil
}

// Delete removes the article and reports whether it existed.
func (s *MemoryArticleStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[id]; !ok {
		return false, nil
	}
	delete(s.articles, id)
	return true, nil
}

// Exists reports whether any article has the given property value. Only the
// properties validators use are supported.
func (s *MemoryArticleStore) Exists(_ context.Context, property, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		switch property {
		case "title":
			if a.Title == value {
				return true, nil
			}
		case "author":
			if a.Author == value {
				return true, nil
			}
		}
	}
	return false, nil
}

// Len reports the number of stored articles.
func (s *MemoryArticleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.articles)
}

// MemoryCommentStore is an in-memory CommentStore.
type MemoryCommentStore struct {
	mu       sync.Mutex
	comments map[int64]Comment
	nextID   int64
}

// NewMemoryCommentStore creates an empty in-memory comment store.
func NewMemoryCommentStore() *MemoryCommentStore {
	return &MemoryCommentStore{comments: make(map[int64]Comment), nextID: 1}
}

// ListForArticle returns the comments linked to an article, newest first.
func (s *MemoryCommentStore) ListForArticle(_ context.Context, articleID int64) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Comment
	for _, c := range s.comments {
		if c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get returns the comment with the given id, or nil when absent.
func (s *MemoryCommentStore) Get(_ context.Context, id int64) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// Create assigns an id and stores the comment.
func (s *MemoryCommentStore) Create(_ context.Context, c *Comment) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	stored.ID = s.nextID
	s.nextID++
	s.comments[stored.ID] = stored
	return &stored, nil
}

// Update replaces the stored comment; returns nil when absent.
func (s *MemoryCommentStore) Update(_ context.Context, c *Comment) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[c.ID]; !ok {
		return nil, nil
	}
	stored := *c
	s.comments[stored.ID] = stored
	return &stored, nil
}

// Delete removes the comment and reports whether it existed.
func (s *MemoryCommentStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return false, nil
	}
	delete(s.comments, id)
	return true, nil
}

// Len reports the number of stored comments.
func (s *MemoryCommentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments)
}
