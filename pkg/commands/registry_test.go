package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/pressline/articles-service/pkg/announce"
	"github.com/pressline/articles-service/pkg/blog"
	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commsutil"
)

type countingArticleStore struct {
	blog.ArticleStore
	creates int
}

func (s *countingArticleStore) Create(ctx context.Context, a *blog.Article) (*blog.Article, error) {
	s.creates++
	return s.ArticleStore.Create(ctx, a)
}

type announced struct {
	tags []string
}

func (a *announced) publisher() announce.Publisher {
	return announce.NewCallbackPublisher(func(_ context.Context, tag string, _ *bus.Result) error {
		a.tags = append(a.tags, tag)
		return nil
	})
}

func newTestRegistry() (*Registry, *countingArticleStore, *blog.MemoryArticleStore, *announced) {
	articles := blog.NewMemoryArticleStore()
	counting := &countingArticleStore{ArticleStore: articles}
	svc := blog.NewService(counting, blog.NewMemoryCommentStore())
	ann := &announced{}
	return NewRegistry(svc, ann.publisher()), counting, articles, ann
}

func dispatch(t *testing.T, reg *Registry, typeTag string, body interface{}) *bus.Result {
	t.Helper()
	data, err := commsutil.EncodePayload(body)
	if err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return reg.Dispatch(context.Background(), &bus.Message{
		CorrelationID: "test",
		Type:          typeTag,
		Body:          data,
	})
}

func TestDispatch_ArticleCreate(t *testing.T) {
	reg, _, _, ann := newTestRegistry()

	result := dispatch(t, reg, bus.TypeArticleCreate, blog.Article{Title: "T", Author: "A", Content: "C"})
	if result == nil || !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	var created blog.Article
	if err := result.DecodeInto(&created); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected an assigned id")
	}
	if created.Title != "T" {
		t.Errorf("Title = %q", created.Title)
	}

	if len(ann.tags) != 1 || ann.tags[0] != bus.TypeArticleCreate {
		t.Errorf("expected one article-create announcement, got %v", ann.tags)
	}
}

func TestDispatch_ArticleCreate_ValidationFailure(t *testing.T) {
	reg, counting, _, ann := newTestRegistry()

	result := dispatch(t, reg, bus.TypeArticleCreate, blog.Article{Title: "", Author: "A", Content: "C"})
	if result == nil || result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if !strings.Contains(result.Message, "title") {
		t.Errorf("message = %q, want it to mention the title", result.Message)
	}
	if counting.creates != 0 {
		t.Errorf("storage Create invoked %d times, want 0", counting.creates)
	}
	if len(ann.tags) != 0 {
		t.Errorf("validation failures must not be announced, got %v", ann.tags)
	}
}

func TestDispatch_ArticleUpdate_NotFound(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	result := dispatch(t, reg, bus.TypeArticleUpdate, blog.Article{ID: 9, Title: "T", Author: "A", Content: "C"})
	if result == nil || result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if !strings.Contains(result.Message, "wasn't found") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestDispatch_ArticleDelete_UnknownIDIsNoOpSuccess(t *testing.T) {
	reg, _, articles, ann := newTestRegistry()

	result := dispatch(t, reg, bus.TypeArticleDelete, blog.DeleteRequest{ID: 404})
	if result == nil || !result.Success {
		t.Fatalf("expected no-op success, got %+v", result)
	}
	if articles.Len() != 0 {
		t.Errorf("collection size changed")
	}
	if len(ann.tags) != 0 {
		t.Errorf("no-op delete must not be announced, got %v", ann.tags)
	}
}

func TestDispatch_ArticleDelete_RemovesExactlyOne(t *testing.T) {
	reg, _, articles, ann := newTestRegistry()

	created := dispatch(t, reg, bus.TypeArticleCreate, blog.Article{Title: "T", Author: "A", Content: "C"})
	var article blog.Article
	if err := created.DecodeInto(&article); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}

	result := dispatch(t, reg, bus.TypeArticleDelete, blog.DeleteRequest{ID: article.ID})
	if result == nil || !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if articles.Len() != 0 {
		t.Errorf("collection size = %d, want 0", articles.Len())
	}
	if len(ann.tags) != 2 || ann.tags[1] != bus.TypeArticleDelete {
		t.Errorf("expected a delete announcement, got %v", ann.tags)
	}
}

func TestDispatch_CommentCreate_WithoutArticleLink(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	result := dispatch(t, reg, bus.TypeCommentCreate, blog.Comment{Author: "A", Content: "C"})
	if result == nil || result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Message == "" {
		t.Error("expected a non-empty message")
	}
}

func TestDispatch_UnrecognizedTagProducesNoResult(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	result := reg.Dispatch(context.Background(), &bus.Message{Type: "article-rename", Body: nil})
	if result != nil {
		t.Errorf("expected nil result for unrecognized tag, got %+v", result)
	}
}

func TestGet(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	if reg.Get("article-rename") != nil {
		t.Error("expected nil executor for unrecognized tag")
	}
	for _, kind := range Kinds() {
		if reg.Get(kind.Tag()) == nil {
			t.Errorf("expected an executor for %s", kind.Tag())
		}
	}
}

func TestDispatch_MalformedBody(t *testing.T) {
	reg, counting, _, _ := newTestRegistry()

	result := reg.Dispatch(context.Background(), &bus.Message{
		Type: bus.TypeArticleCreate,
		Body: []byte("{broken"),
	})
	if result == nil || result.Success {
		t.Fatalf("expected failure for malformed body, got %+v", result)
	}
	if counting.creates != 0 {
		t.Errorf("storage Create invoked %d times, want 0", counting.creates)
	}
}

func TestDispatch_ArticleUpdate_FrontEndPayload(t *testing.T) {
	reg, _, _, ann := newTestRegistry()

	result := dispatch(t, reg, bus.TypeArticleCreate, blog.Article{Title: "T1", Author: "A", Content: "C1"})
	if result == nil || !result.Success {
		t.Fatalf("create failed: %+v", result)
	}
	var created blog.Article
	if err := result.DecodeInto(&created); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}

	// The shell front-end sends only the id and the changed fields
	result = dispatch(t, reg, bus.TypeArticleUpdate, blog.Article{ID: created.ID, Title: "T2", Content: "C2"})
	if result == nil || !result.Success {
		t.Fatalf("update without author must succeed, got %+v", result)
	}
	var updated blog.Article
	if err := result.DecodeInto(&updated); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if updated.Title != "T2" || updated.Content != "C2" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.Author != "A" {
		t.Errorf("Author = %q, want the stored author kept", updated.Author)
	}
	if len(ann.tags) != 2 || ann.tags[1] != bus.TypeArticleUpdate {
		t.Errorf("expected an article-update announcement, got %v", ann.tags)
	}
}

func TestDispatch_CommentUpdate_FrontEndPayload(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	result := dispatch(t, reg, bus.TypeArticleCreate, blog.Article{Title: "T", Author: "A", Content: "C"})
	if result == nil || !result.Success {
		t.Fatalf("create article failed: %+v", result)
	}
	var article blog.Article
	if err := result.DecodeInto(&article); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}

	result = dispatch(t, reg, bus.TypeCommentCreate, blog.Comment{ArticleID: article.ID, Author: "bob", Content: "first"})
	if result == nil || !result.Success {
		t.Fatalf("create comment failed: %+v", result)
	}
	var comment blog.Comment
	if err := result.DecodeInto(&comment); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}

	// Only the id and the new content, no author and no article link
	result = dispatch(t, reg, bus.TypeCommentUpdate, blog.Comment{ID: comment.ID, Content: "second"})
	if result == nil || !result.Success {
		t.Fatalf("content-only update must succeed, got %+v", result)
	}
	var updated blog.Comment
	if err := result.DecodeInto(&updated); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if updated.Content != "second" {
		t.Errorf("Content = %q, want second", updated.Content)
	}
	if updated.Author != "bob" || updated.ArticleID != article.ID {
		t.Errorf("immutable fields not kept: %+v", updated)
	}
}
