// Package main is a shell front-end for the articles service. Writes go
// through the COMMS work queue, reads through the HTTP read API, and watch
// mode follows the fanout change channel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressline/articles-service/internal/config"
	"github.com/pressline/articles-service/pkg/announce"
	"github.com/pressline/articles-service/pkg/blog"
	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commands"
	"github.com/pressline/articles-service/pkg/commsutil"
	"github.com/pressline/articles-service/pkg/viewstate"
)

const usage = `Usage: articlesctl <command> [flags]

Commands:
  article create -title T -author A -content C   Publish a new article.
  article update -id N [-title T] [-content C]   Update an article's title and content.
  article delete -id N                           Delete an article (and its comments).
  comment create -article N -author A -content C Add a comment to an article.
  comment update -id N -content C                Update a comment's content.
  comment delete -id N                           Delete a comment.
  list [-server URL]                             List articles via the HTTP read API.
  comments -article N [-server URL]              List an article's comments via the HTTP read API.
  watch                                          Follow the change channel until interrupted.

Environment: COMMS_URL, APP_ID, REQUEST_SUBJECT, ANNOUNCE_SUBJECT, REQUEST_TIMEOUT. See README for full list.
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "article":
		err = runArticle(args[1:])
	case "comment":
		err = runComment(args[1:])
	case "list":
		err = runList(args[1:])
	case "comments":
		err = runComments(args[1:])
	case "watch":
		err = runWatch()
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", args[0], usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("articlesctl %s: %v", args[0], err)
	}
}

// sendCommand publishes one command on the work queue and prints the reply.
func sendCommand(typeTag string, payload interface{}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.AppID)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	provider := bus.NewRequestProvider(nc, &bus.ProviderOpts{
		Timeout:  cfg.RequestTimeout,
		OwnsConn: true,
	})
	defer provider.Close()

	subject := cfg.RequestSubject
	if subject == "" {
		subject = commsutil.SubjectRequests
	}

	body, err := commsutil.EncodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	// The provider bounds the wait itself; an extra deadline here would just
	// race it.
	result, err := provider.SendRequest(context.Background(), subject, typeTag, body)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("rejected: %s", result.Message)
	}

	pretty, err := json.MarshalIndent(json.RawMessage(result.Data), "", "  ")
	if err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	fmt.Println(string(pretty))
	return nil
}

func runArticle(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("require subcommand (create, update, delete)")
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("article create", flag.ExitOnError)
		title := fs.String("title", "", "article title")
		author := fs.String("author", "", "article author")
		content := fs.String("content", "", "article content")
		fs.Parse(args[1:])
		return sendCommand(bus.TypeArticleCreate, &blog.Article{
			Title:   *title,
			Author:  *author,
			Content: *content,
		})
	case "update":
		fs := flag.NewFlagSet("article update", flag.ExitOnError)
		id := fs.Int64("id", 0, "article id")
		title := fs.String("title", "", "new title")
		content := fs.String("content", "", "new content")
		fs.Parse(args[1:])
		return sendCommand(bus.TypeArticleUpdate, &blog.Article{
			ID:      *id,
			Title:   *title,
			Content: *content,
		})
	case "delete":
		fs := flag.NewFlagSet("article delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "article id")
		fs.Parse(args[1:])
		return sendCommand(bus.TypeArticleDelete, &blog.DeleteRequest{ID: *id})
	default:
		return fmt.Errorf("unknown subcommand %q (use create, update, delete)", args[0])
	}
}

func runComment(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("require subcommand (create, update, delete)")
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("comment create", flag.ExitOnError)
		articleID := fs.Int64("article", 0, "article id")
		author := fs.String("author", "", "comment author")
		content := fs.String("content", "", "comment content")
		fs.Parse(args[1:])
		return sendCommand(bus.TypeCommentCreate, &blog.Comment{
			ArticleID: *articleID,
			Author:    *author,
			Content:   *content,
		})
	case "update":
		fs := flag.NewFlagSet("comment update", flag.ExitOnError)
		id := fs.Int64("id", 0, "comment id")
		content := fs.String("content", "", "new content")
		fs.Parse(args[1:])
		return sendCommand(bus.TypeCommentUpdate, &blog.Comment{
			ID:      *id,
			Content: *content,
		})
	case "delete":
		fs := flag.NewFlagSet("comment delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "comment id")
		fs.Parse(args[1:])
		return sendCommand(bus.TypeCommentDelete, &blog.DeleteRequest{ID: *id})
	default:
		return fmt.Errorf("unknown subcommand %q (use create, update, delete)", args[0])
	}
}

// fetchJSON GETs a read-API path and decodes the response.
func fetchJSON(server, path string, v interface{}) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(server + path)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	server := fs.String("server", "http://127.0.0.1:8080", "read API base URL")
	fs.Parse(args)

	var articles []blog.Article
	if err := fetchJSON(*server, "/api/articles", &articles); err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No articles.")
		return nil
	}
	for _, a := range articles {
		fmt.Printf("%4d  %-40s  %-16s  %s\n", a.ID, a.Title, a.Author, a.Created.Format("2006-01-02 15:04"))
	}
	return nil
}

func runComments(args []string) error {
	fs := flag.NewFlagSet("comments", flag.ExitOnError)
	articleID := fs.Int64("article", 0, "article id")
	server := fs.String("server", "http://127.0.0.1:8080", "read API base URL")
	fs.Parse(args)
	if *articleID <= 0 {
		return fmt.Errorf("require -article")
	}

	var comments []blog.Comment
	path := fmt.Sprintf("/api/articles/%d/comments", *articleID)
	if err := fetchJSON(*server, path, &comments); err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Println("No comments.")
		return nil
	}
	for _, c := range comments {
		fmt.Printf("%4d  %-16s  %s\n", c.ID, c.Author, c.Content)
	}
	return nil
}

// runWatch follows the change channel and prints every announcement. The
// local feed mirrors what other subscribers see; it starts empty, so only
// changes made while watching are reflected in the counts.
func runWatch() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.AppID)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer nc.Close()

	feed := viewstate.NewFeed()
	sub := announce.NewSubscriber(nc, announce.SubscriberOpts{
		Subject:      cfg.AnnounceSubject,
		IgnoreOrigin: cfg.AppID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Println("Watching for changes (Ctrl-C to stop)...")
	return watchStopped(sub.Subscribe(ctx, func(m *bus.Message) {
		kind, err := commands.ParseKind(m.Type)
		if err != nil {
			fmt.Printf("?  unrecognized announcement %q\n", m.Type)
			return
		}
		if err := feed.ApplyAnnounce(m); err != nil {
			fmt.Printf("!  %s: %v\n", kind, err)
			return
		}
		fmt.Printf("*  %s  (%d articles, %d comments tracked)\n",
			kind, len(feed.Articles()), len(feed.Comments()))
	}))
}

// watchStopped maps a clean cancellation (Ctrl-C) to a normal exit; anything
// else is a real failure.
func watchStopped(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
