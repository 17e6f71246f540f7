// Package viewstate maintains a client's locally cached article and comment
// lists, patched incrementally from announce messages instead of refetched.
package viewstate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pressline/articles-service/pkg/blog"
	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commands"
	"github.com/pressline/articles-service/pkg/commsutil"
)

const feedLogPrefix = "viewstate:feed"

// Feed is the locally cached view state. Updates and deletes are idempotent:
// replaying one against a feed that already applied it is a no-op.
type Feed struct {
	mu       sync.Mutex
	articles []blog.Article
	comments []blog.Comment
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Seed replaces the cached lists wholesale, e.g. after an initial fetch.
func (f *Feed) Seed(articles []blog.Article, comments []blog.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append([]blog.Article(nil), articles...)
	f.comments = append([]blog.Comment(nil), comments...)
	sortArticles(f.articles)
	sortComments(f.comments)
}

// Articles returns a copy of the cached articles, newest first.
func (f *Feed) Articles() []blog.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]blog.Article(nil), f.articles...)
}

// Comments returns a copy of the cached comments, newest first.
func (f *Feed) Comments() []blog.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]blog.Comment(nil), f.comments...)
}

// ApplyAnnounce patches the feed from an announce message. An unrecognized
// type tag is a defect in the announcing side and surfaces as a hard error,
// not a silent drop.
func (f *Feed) ApplyAnnounce(m *bus.Message) error {
	kind, err := commands.ParseKind(m.Type)
	if err != nil {
		return fmt.Errorf("%s - command not found: %w", feedLogPrefix, err)
	}

	var result bus.Result
	if err := commsutil.DecodePayload(m.Body, &result); err != nil {
		return fmt.Errorf("%s - failed to decode announcement body: %w", feedLogPrefix, err)
	}
	if !result.Success {
		return fmt.Errorf("%s - announcement for %s is not a successful result: %s", feedLogPrefix, m.Type, result.Message)
	}
	return f.Apply(kind, &result)
}

// Apply patches the feed with one command's result.
func (f *Feed) Apply(kind commands.Kind, result *bus.Result) error {
	switch kind {
	case commands.KindArticleCreate:
		var a blog.Article
		if err := result.DecodeInto(&a); err != nil {
			return fmt.Errorf("%s - %s: %w", feedLogPrefix, kind, err)
		}
		f.insertArticle(a)
	case commands.KindArticleUpdate:
		var a blog.Article
		if err := result.DecodeInto(&a); err != nil {
			return fmt.Errorf("%s - %s: %w", feedLogPrefix, kind, err)
		}
		f.patchArticle(a)
	case commands.KindArticleDelete:
		var req blog.DeleteRequest
		if err := result.DecodeInto(&req); err != nil {
			return fmt.Errorf("%s - %s: %w", feedLogPrefix, kind, err)
		}
		f.removeArticle(req.ID)
	case commands.KindCommentCreate:
		var c blog.Comment
		if err := result.DecodeInto(&c); err != nil {
			return fmt.Errorf("%s - %s: %w", feedLogPrefix, kind, err)
		}
		f.insertComment(c)
	case commands.KindCommentUpdate:
		var c blog.Comment
		if err := result.DecodeInto(&c); err != nil {
			return fmt.Errorf("%s - %s: %w", feedLogPrefix, kind, err)
		}
		f.patchComment(c)
	case commands.KindCommentDelete:
		var req blog.DeleteRequest
		if err := result.DecodeInto(&req); err != nil {
			return fmt.Errorf("%s - %s: %w", feedLogPrefix, kind, err)
		}
		f.removeComment(req.ID)
	}
	return nil
}

func (f *Feed) insertArticle(a blog.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append(f.articles, a)
	sortArticles(f.articles)
}

func (f *Feed) patchArticle(a blog.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == a.ID {
			f.articles[i].Title = a.Title
			f.articles[i].Content = a.Content
			return
		}
	}
	// Absent target: no-op.
}

func (f *Feed) removeArticle(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles = append(f.articles[:i], f.articles[i+1:]...)
			return
		}
	}
}

func (f *Feed) insertComment(c blog.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, c)
	sortComments(f.comments)
}

func (f *Feed) patchComment(c blog.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.comments {
		if f.comments[i].ID == c.ID {
			f.comments[i].Content = c.Content
			return
		}
	}
}

func (f *Feed) removeComment(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.comments {
		if f.comments[i].ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return
		}
	}
}

func sortArticles(articles []blog.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].Created.Equal(articles[j].Created) {
			return articles[i].Created.After(articles[j].Created)
		}
		return articles[i].ID > articles[j].ID
	})
}

func sortComments(comments []blog.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].Created.Equal(comments[j].Created) {
			return comments[i].Created.After(comments[j].Created)
		}
		return comments[i].ID > comments[j].ID
	})
}
