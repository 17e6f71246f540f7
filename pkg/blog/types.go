// Package blog implements the articles-and-comments domain: records, store
// interfaces, validators and the write service the command executors call.
package blog

import "time"

// Article is a published article.
type Article struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// Comment is a reader comment linked to an article.
type Comment struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Created   time.Time `json:"created"`
}

// DeleteRequest is the body of article-delete and comment-delete commands.
type DeleteRequest struct {
	ID int64 `json:"id"`
}
