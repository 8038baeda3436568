package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apengjers/joki-bot/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMigrationsDir = "migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	files := os.Args[1:]
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(defaultMigrationsDir, "*.sql"))
		if err != nil || len(files) == 0 {
			log.Fatalf("Usage: go run ./cmd/run_migration [migration_file ...] (no files found in %s/)", defaultMigrationsDir)
		}
		sort.Strings(files)
	}

	// Use DATABASE_PUBLIC_URL for local runs against a hosted database
	dbURL := cfg.DBURL
	if publicURL := os.Getenv("DATABASE_PUBLIC_URL"); publicURL != "" {
		dbURL = publicURL
		log.Println("Using DATABASE_PUBLIC_URL (external) for local execution")
	} else if strings.Contains(dbURL, ".internal") {
		log.Println("WARNING: database URL uses an internal hostname - set DATABASE_PUBLIC_URL for local runs")
	}

	ctx := context.Background()
	dbpool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✓ Database connection established")

	for _, file := range files {
		path, ok := findMigration(file)
		if !ok {
			log.Fatalf("Migration file not found: %s", file)
		}

		sqlContent, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}

		log.Printf("Executing %s...", path)
		if _, err := dbpool.Exec(ctx, string(sqlContent)); err != nil {
			log.Fatalf("Failed to execute migration %s: %v", path, err)
		}
	}

	log.Printf("✓ %d migration(s) completed successfully", len(files))
}

// findMigration resolves file as given or relative to up to two parent directories
func findMigration(file string) (string, bool) {
	candidates := []string{file}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates,
			filepath.Join(wd, "..", file),
			filepath.Join(wd, "..", "..", file),
		)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
