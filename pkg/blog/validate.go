package blog

import (
	"context"
	"fmt"
	"strings"
)

const validateLogPrefix = "blog:validate"

// ArticleValidator validates article records ahead of a write.
type ArticleValidator struct {
	Articles ArticleStore
}

// Validate returns the list of human-readable problems with the record; an
// empty list means valid. Title uniqueness is only enforced for new records
// (ID zero), since the store's Exists check cannot exclude the record itself.
func (v *ArticleValidator) Validate(ctx context.Context, a *Article) ([]string, error) {
	var errs []string
	if strings.TrimSpace(a.Title) == "" {
		errs = append(errs, "the article title is required")
	}
	if strings.TrimSpace(a.Author) == "" {
		errs = append(errs, "the article author is required")
	}
	if strings.TrimSpace(a.Content) == "" {
		errs = append(errs, "the article content is required")
	}

	if a.ID == 0 && strings.TrimSpace(a.Title) != "" {
		exists, err := v.Articles.Exists(ctx, "title", a.Title)
		if err != nil {
			return nil, fmt.Errorf("%s - title uniqueness check failed: %w", validateLogPrefix, err)
		}
		if exists {
			errs = append(errs, fmt.Sprintf("an article titled %q already exists", a.Title))
		}
	}
	return errs, nil
}

// CommentValidator validates comment records ahead of a write.
type CommentValidator struct {
	Articles ArticleStore
}

// Validate returns the list of human-readable problems with the record; an
// empty list means valid.
func (v *CommentValidator) Validate(ctx context.Context, c *Comment) ([]string, error) {
	var errs []string
	if strings.TrimSpace(c.Author) == "" {
		errs = append(errs, "the comment author is required")
	}
	if strings.TrimSpace(c.Content) == "" {
		errs = append(errs, "the comment content is required")
	}
	if c.ArticleID == 0 {
		errs = append(errs, "the comment must be linked to an article")
	} else {
		article, err := v.Articles.Get(ctx, c.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("%s - article lookup failed: %w", validateLogPrefix, err)
		}
		if article == nil {
			errs = append(errs, fmt.Sprintf("the linked article with id %d wasn't found", c.ArticleID))
		}
	}
	return errs, nil
}
