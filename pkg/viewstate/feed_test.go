package viewstate

import (
	"strings"
	"testing"
	"time"

	"github.com/pressline/articles-service/pkg/blog"
	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commands"
	"github.com/pressline/articles-service/pkg/commsutil"
)

func mustOk(t *testing.T, v interface{}) *bus.Result {
	t.Helper()
	result, err := bus.OkResult(v)
	if err != nil {
		t.Fatalf("OkResult failed: %v", err)
	}
	return result
}

func announceMsg(t *testing.T, tag string, v interface{}) *bus.Message {
	t.Helper()
	body, err := commsutil.EncodePayload(mustOk(t, v))
	if err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return &bus.Message{Type: tag, Body: body}
}

func TestFeed_CreateInsertsNewestFirst(t *testing.T) {
	feed := NewFeed()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	older := blog.Article{ID: 1, Title: "older", Author: "A", Content: "C", Created: base}
	newer := blog.Article{ID: 2, Title: "newer", Author: "A", Content: "C", Created: base.Add(time.Hour)}

	if err := feed.Apply(commands.KindArticleCreate, mustOk(t, older)); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if err := feed.Apply(commands.KindArticleCreate, mustOk(t, newer)); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	articles := feed.Articles()
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].ID != 2 || articles[1].ID != 1 {
		t.Errorf("expected newest first, got %v", articles)
	}
}

func TestFeed_UpdatePatchesMutableFields(t *testing.T) {
	feed := NewFeed()
	feed.Seed([]blog.Article{{ID: 1, Title: "T", Author: "A", Content: "C", Created: time.Now()}}, nil)

	patched := blog.Article{ID: 1, Title: "T2", Author: "intruder", Content: "C2"}
	if err := feed.Apply(commands.KindArticleUpdate, mustOk(t, patched)); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	articles := feed.Articles()
	if articles[0].Title != "T2" || articles[0].Content != "C2" {
		t.Errorf("mutable fields not patched: %+v", articles[0])
	}
	if articles[0].Author != "A" {
		t.Errorf("author must not be patched, got %q", articles[0].Author)
	}
}

func TestFeed_UpdateAbsentIsNoOp(t *testing.T) {
	feed := NewFeed()
	if err := feed.Apply(commands.KindArticleUpdate, mustOk(t, blog.Article{ID: 9, Title: "T"})); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(feed.Articles()) != 0 {
		t.Error("update of an absent article must not insert it")
	}
}

func TestFeed_DeleteIsIdempotent(t *testing.T) {
	feed := NewFeed()
	feed.Seed([]blog.Article{{ID: 1, Title: "T", Author: "A", Content: "C"}}, nil)

	del := mustOk(t, blog.DeleteRequest{ID: 1})
	if err := feed.Apply(commands.KindArticleDelete, del); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(feed.Articles()) != 0 {
		t.Fatal("article not removed")
	}

	// Replaying the identical announce must not corrupt state.
	if err := feed.Apply(commands.KindArticleDelete, del); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(feed.Articles()) != 0 {
		t.Error("replayed delete changed state")
	}
}

func TestFeed_UpdateReplayIsIdempotent(t *testing.T) {
	feed := NewFeed()
	feed.Seed([]blog.Article{{ID: 1, Title: "T", Author: "A", Content: "C"}}, nil)

	patched := mustOk(t, blog.Article{ID: 1, Title: "T2", Content: "C2"})
	for i := 0; i < 2; i++ {
		if err := feed.Apply(commands.KindArticleUpdate, patched); err != nil {
			t.Fatalf("apply %d failed: %v", i, err)
		}
	}

	articles := feed.Articles()
	if len(articles) != 1 || articles[0].Title != "T2" {
		t.Errorf("replayed update corrupted state: %v", articles)
	}
}

func TestFeed_CommentLifecycle(t *testing.T) {
	feed := NewFeed()

	c := blog.Comment{ID: 5, ArticleID: 1, Author: "bob", Content: "first", Created: time.Now()}
	if err := feed.Apply(commands.KindCommentCreate, mustOk(t, c)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := feed.Apply(commands.KindCommentUpdate, mustOk(t, blog.Comment{ID: 5, Content: "edited"})); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	comments := feed.Comments()
	if len(comments) != 1 || comments[0].Content != "edited" {
		t.Fatalf("unexpected comments: %v", comments)
	}
	if comments[0].Author != "bob" {
		t.Errorf("comment author must not be patched")
	}

	if err := feed.Apply(commands.KindCommentDelete, mustOk(t, blog.DeleteRequest{ID: 5})); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(feed.Comments()) != 0 {
		t.Error("comment not removed")
	}
}

func TestApplyAnnounce(t *testing.T) {
	feed := NewFeed()

	msg := announceMsg(t, bus.TypeArticleCreate, blog.Article{ID: 3, Title: "T", Author: "A", Content: "C", Created: time.Now()})
	if err := feed.ApplyAnnounce(msg); err != nil {
		t.Fatalf("ApplyAnnounce failed: %v", err)
	}
	if len(feed.Articles()) != 1 {
		t.Error("announced article not applied")
	}
}

func TestApplyAnnounce_UnrecognizedTagIsHardError(t *testing.T) {
	feed := NewFeed()

	err := feed.ApplyAnnounce(&bus.Message{Type: "article-rename", Body: []byte(`{"success":true}`)})
	if err == nil {
		t.Fatal("expected a hard error for an unrecognized tag")
	}
	if !strings.Contains(err.Error(), "command not found") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestApplyAnnounce_FailureResultIsRejected(t *testing.T) {
	feed := NewFeed()

	body, _ := commsutil.EncodePayload(bus.FailResult("validation failed"))
	err := feed.ApplyAnnounce(&bus.Message{Type: bus.TypeArticleCreate, Body: body})
	if err == nil {
		t.Fatal("expected an error for a failed result announcement")
	}
}
