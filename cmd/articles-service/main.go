// Package main is the entrypoint for the articles-service.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/pressline/articles-service/internal/config"
	"github.com/pressline/articles-service/internal/server"
	"github.com/pressline/articles-service/pkg/db"
)

const usage = `Usage: articles-service [command]

Commands:
  (default)        Start the articles service (NATS listener, HTTP read API).
  migrate [dir]    Run database migrations. dir is up (default), down, or status.
  ensure-db [name] Create the configured database (or name) if it does not exist.
  clear            Truncate articles and comments; schema is preserved.

Environment: COMMS_URL, DATABASE_URL, MIGRATION_PATH (migrate). See README for full list.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		direction := "up"
		if len(args) > 1 {
			direction = args[1]
		}
		if err := runMigrate(direction); err != nil {
			log.Fatalf("articles-service migrate: %v", err)
		}
		return
	case "ensure-db":
		dbName := ""
		if len(args) > 1 {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("articles-service ensure-db: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("articles-service clear: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "":
		// fall through to server
	default:
		// unknown subcommand
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("articles-service: fatal error: %v", err)
	}
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrate(direction string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	switch direction {
	case "up":
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	case "down":
		return db.MigrationDown(ctx, pool, cfg.MigrationPath)
	case "status":
		return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	default:
		return fmt.Errorf("unknown migrate direction %q (want up, down, or status)", direction)
	}
}

func runEnsureDB(dbName string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	targetURL := cfg.DatabaseURL
	if dbName != "" {
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("parse DATABASE_URL: %w", err)
		}
		// Replace the path with the target database name; query (e.g.
		// sslmode) is kept on u.RawQuery.
		u.Path = "/" + dbName
		targetURL = u.String()
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return fmt.Errorf("ensure database: %w", err)
	}
	fmt.Println("Database is ready.")
	return nil
}

func runClear() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearBlog(ctx, pool); err != nil {
		return fmt.Errorf("clear blog tables: %w", err)
	}
	return nil
}
