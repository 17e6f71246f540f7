// Package server orchestrates all components: COMMS client, DB, command registry, listener, HTTP read API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/pressline/articles-service/internal/config"
	"github.com/pressline/articles-service/pkg/announce"
	"github.com/pressline/articles-service/pkg/blog"
	"github.com/pressline/articles-service/pkg/bus"
	"github.com/pressline/articles-service/pkg/commands"
	"github.com/pressline/articles-service/pkg/commsutil"
	"github.com/pressline/articles-service/pkg/db"
)

const logPrefix = "server:server"

// Server is the articles-service orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server
	svc        *blog.Service
}

// healthStatus is the /health response shape.
type healthStatus struct {
	Status    string          `json:"status"`
	Checks    map[string]bool `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	// Setup structured logging
	var logLevel slog.Level
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting articles-service", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	requestSubject := cfg.RequestSubject
	if requestSubject == "" {
		requestSubject = commsutil.SubjectRequests
	}
	slog.Info(fmt.Sprintf("%s - Request subject: %s", logPrefix, requestSubject))

	// Step 1: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	s.nc = nc
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	// Step 2: Connect to database, or fall back to in-memory stores when no
	// DATABASE_URL is configured (demo mode, state lost on restart).
	var articles blog.ArticleStore
	var comments blog.CommentStore
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			nc.Close()
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		// Step 2b: Run migrations if enabled
		if cfg.RunMigrations {
			migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				nc.Close()
				return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
				pool.Close()
				nc.Close()
				return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}

		articles = db.NewArticleStore(pool)
		comments = db.NewCommentStore(pool)
	} else {
		slog.Warn(fmt.Sprintf("%s - DATABASE_URL not set, using in-memory stores", logPrefix))
		articles = blog.NewMemoryArticleStore()
		comments = blog.NewMemoryCommentStore()
	}

	// Step 3: Create the domain service, announcement publisher, and the
	// command registry wiring one executor per command tag.
	svc := blog.NewService(articles, comments)
	s.svc = svc

	publisher := announce.NewCommsPublisher(nc, &announce.CommsPublisherOpts{
		Subject: cfg.AnnounceSubject,
		Origin:  cfg.AppID,
	})
	registry := commands.NewRegistry(svc, publisher)

	// Step 4: Consume the work queue. The listener borrows the shared
	// connection and replies on each request's reply subject.
	listener := bus.NewListener(registry, bus.ListenerOpts{
		Subject:    requestSubject,
		Backoff:    cfg.ListenerBackoff,
		MaxRetries: cfg.ListenerMaxRetries,
		Conn:       nc,
	})
	listenerErr := make(chan error, 1)
	go func() {
		listenerErr <- listener.Listen(ctx)
	}()
	slog.Info(fmt.Sprintf("%s - Listening on %s (queue %s)", logPrefix, requestSubject, commsutil.QueueWorkers))

	// Step 5: Start HTTP read API and health server
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/article/", s.handleArticleDetail())
	mux.HandleFunc("/api/articles", s.handleAPIArticles())
	mux.HandleFunc("/api/articles/", s.handleAPIComments())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(healthCtx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Articles-service is ready", logPrefix))

	// Wait for shutdown signal or listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
	case err := <-listenerErr:
		if err != nil {
			slog.Error(fmt.Sprintf("%s - Listener failed: %v", logPrefix, err))
			runErr = err
		}
	}

	// Graceful shutdown
	cancel()
	s.httpServer.Shutdown(context.Background())
	nc.Drain()
	if s.pool != nil {
		s.pool.Close()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return runErr
}

// health pings the database (when configured) and checks the COMMS
// connection.
func (s *Server) health(ctx context.Context) *healthStatus {
	h := &healthStatus{
		Status:    "healthy",
		Checks:    map[string]bool{"comms": s.nc != nil && s.nc.IsConnected()},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.pool != nil {
		h.Checks["database"] = s.pool.Ping(ctx) == nil
	}
	for _, ok := range h.Checks {
		if !ok {
			h.Status = "unhealthy"
		}
	}
	return h
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", logPrefix, err))
	}
}

// handleAPIArticles returns an HTTP handler listing all articles as JSON.
func (s *Server) handleAPIArticles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		list, err := s.svc.ListArticles(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []blog.Article{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleAPIComments returns an HTTP handler for /api/articles/{id} and
// /api/articles/{id}/comments.
func (s *Server) handleAPIComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/articles/")
		idPart := rest
		suffix := ""
		if idx := strings.Index(rest, "/"); idx >= 0 {
			idPart = rest[:idx]
			suffix = rest[idx+1:]
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			http.NotFound(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		switch suffix {
		case "":
			article, err := s.svc.GetArticle(ctx, id)
			if err != nil {
				if _, ok := err.(*blog.NotFoundError); ok {
					http.NotFound(w, r)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, article)
		case "comments":
			list, err := s.svc.ListComments(ctx, id)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if list == nil {
				list = []blog.Comment{}
			}
			writeJSON(w, http.StatusOK, list)
		default:
			http.NotFound(w, r)
		}
	}
}

// homePageTemplate is the HTML for the article list home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Articles</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Articles</h1>
  <p class="meta">Published articles, newest first.</p>

  <section>
    {{if .ListError}}
    <p class="error">Could not load articles: {{.ListError}}</p>
    {{else}}
    <p>Total articles: <span class="stat">{{len .Articles}}</span></p>
    {{if not .Articles}}
    <p>No articles published yet.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Title</th><th>Author</th><th>Created</th></tr>
      </thead>
      <tbody>
        {{range .Articles}}
        <tr>
          <td><a href="/article/{{.ID}}">{{.Title}}</a></td>
          <td>{{.Author}}</td>
          <td>{{.Created.Format "2006-01-02 15:04"}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Articles  []blog.Article
	ListError string
}

// handleHome returns an HTTP handler for the article list home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		var data homeData
		list, err := s.svc.ListArticles(ctx)
		if err != nil {
			data.ListError = err.Error()
		} else {
			data.Articles = list
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// articleDetailPageTemplate is the HTML for a single article with its comments.
const articleDetailPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{if .Article}}{{.Article.Title}}{{else}}Article{{end}} – Articles</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; max-width: 900px; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 0.5rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
    .comment { border: 1px solid #ccc; padding: 0.75rem; margin-bottom: 0.75rem; }
    .comment .meta { margin-top: 0; margin-bottom: 0.5rem; }
    .back { margin-bottom: 1rem; }
    .content { white-space: pre-wrap; }
  </style>
</head>
<body>
  <p class="back"><a href="/">← Back to articles</a></p>
  {{if .LoadError}}
  <p class="error">Could not load article: {{.LoadError}}</p>
  {{else}}
  <h1>{{.Article.Title}}</h1>
  <p class="meta">By {{.Article.Author}} on {{.Article.Created.Format "2006-01-02 15:04"}}</p>

  <section>
    <p class="content">{{.Article.Content}}</p>
  </section>

  <section>
    <h2>Comments ({{len .Comments}})</h2>
    {{if not .Comments}}
    <p>No comments yet.</p>
    {{else}}
    {{range .Comments}}
    <div class="comment">
      <p class="meta">{{.Author}} on {{.Created.Format "2006-01-02 15:04"}}</p>
      <p class="content">{{.Content}}</p>
    </div>
    {{end}}
    {{end}}
  </section>
  {{end}}
</body>
</html>
`

// articleDetailData is the data passed to the article detail page template.
type articleDetailData struct {
	Article   *blog.Article
	Comments  []blog.Comment
	LoadError string
}

// handleArticleDetail returns an HTTP handler for the article detail page.
func (s *Server) handleArticleDetail() http.HandlerFunc {
	tmpl := template.Must(template.New("articleDetail").Parse(articleDetailPageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		idPart := strings.TrimPrefix(r.URL.Path, "/article/")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			http.NotFound(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		var data articleDetailData
		article, err := s.svc.GetArticle(ctx, id)
		if err != nil {
			if _, ok := err.(*blog.NotFoundError); ok {
				http.NotFound(w, r)
				return
			}
			data.LoadError = err.Error()
		} else {
			data.Article = article
			comments, err := s.svc.ListComments(ctx, id)
			if err != nil {
				slog.Error(fmt.Sprintf("%s - failed to list comments for article %d: %v", logPrefix, id, err))
			} else {
				data.Comments = comments
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - article detail template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
