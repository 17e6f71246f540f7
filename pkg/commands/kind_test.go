package commands

import "testing"

func TestParseKind_AllTags(t *testing.T) {
	for _, kind := range Kinds() {
		parsed, err := ParseKind(kind.Tag())
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", kind.Tag(), err)
		}
		if parsed != kind {
			t.Errorf("ParseKind(%q) = %v, want %v", kind.Tag(), parsed, kind)
		}
	}
}

func TestParseKind_Unrecognized(t *testing.T) {
	for _, tag := range []string{"", "article-rename", "ARTICLE-CREATE", "comment"} {
		if _, err := ParseKind(tag); err == nil {
			t.Errorf("ParseKind(%q) should fail", tag)
		}
	}
}

func TestKind_Predicates(t *testing.T) {
	for _, kind := range Kinds() {
		if kind.IsArticle() == kind.IsComment() {
			t.Errorf("%v must be exactly one of article/comment", kind)
		}
	}
	if !KindArticleDelete.IsArticle() {
		t.Error("article-delete must be an article command")
	}
	if !KindCommentCreate.IsComment() {
		t.Error("comment-create must be a comment command")
	}
}

func TestKind_TagsAreTheWireContract(t *testing.T) {
	want := map[Kind]string{
		KindArticleCreate: "article-create",
		KindArticleUpdate: "article-update",
		KindArticleDelete: "article-delete",
		KindCommentCreate: "comment-create",
		KindCommentUpdate: "comment-update",
		KindCommentDelete: "comment-delete",
	}
	for kind, tag := range want {
		if kind.Tag() != tag {
			t.Errorf("%d.Tag() = %q, want %q", int(kind), kind.Tag(), tag)
		}
	}
}
