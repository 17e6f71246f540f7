// Package commands defines the closed set of write commands and the executor
// registry that dispatches them.
package commands

import (
	"fmt"

	"github.com/pressline/articles-service/pkg/bus"
)

// Kind is the closed enumeration of write commands. The wire type tags map
// onto it via ParseKind, which is the only place an unrecognized tag can
// surface; everything past that point dispatches exhaustively.
type Kind int

const (
	KindArticleCreate Kind = iota
	KindArticleUpdate
	KindArticleDelete
	KindCommentCreate
	KindCommentUpdate
	KindCommentDelete
)

// Kinds lists every command kind.
func Kinds() []Kind {
	return []Kind{
		KindArticleCreate, KindArticleUpdate, KindArticleDelete,
		KindCommentCreate, KindCommentUpdate, KindCommentDelete,
	}
}

// Tag returns the wire type tag for the kind.
func (k Kind) Tag() string {
	switch k {
	case KindArticleCreate:
		return bus.TypeArticleCreate
	case KindArticleUpdate:
		return bus.TypeArticleUpdate
	case KindArticleDelete:
		return bus.TypeArticleDelete
	case KindCommentCreate:
		return bus.TypeCommentCreate
	case KindCommentUpdate:
		return bus.TypeCommentUpdate
	case KindCommentDelete:
		return bus.TypeCommentDelete
	}
	panic(fmt.Sprintf("commands:kind - invalid kind %d", int(k)))
}

// String implements fmt.Stringer.
func (k Kind) String() string { return k.Tag() }

// IsArticle reports whether the kind mutates articles.
func (k Kind) IsArticle() bool {
	return k == KindArticleCreate || k == KindArticleUpdate || k == KindArticleDelete
}

// IsComment reports whether the kind mutates comments.
func (k Kind) IsComment() bool {
	return k == KindCommentCreate || k == KindCommentUpdate || k == KindCommentDelete
}

// ParseKind maps a wire type tag to its Kind. Unrecognized tags are an
// error: genuinely external input must be rejected here, nowhere else.
func ParseKind(tag string) (Kind, error) {
	switch tag {
	case bus.TypeArticleCreate:
		return KindArticleCreate, nil
	case bus.TypeArticleUpdate:
		return KindArticleUpdate, nil
	case bus.TypeArticleDelete:
		return KindArticleDelete, nil
	case bus.TypeCommentCreate:
		return KindCommentCreate, nil
	case bus.TypeCommentUpdate:
		return KindCommentUpdate, nil
	case bus.TypeCommentDelete:
		return KindCommentDelete, nil
	}
	return 0, fmt.Errorf("commands:kind - unrecognized command tag %q", tag)
}
