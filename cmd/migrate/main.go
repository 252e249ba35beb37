package main

import (
	"flag"
	"log/slog"
	"os"

	"palpite-api/internal"
)

func main() {
	down := flag.Bool("down", false, "revert all migrations instead of applying them")
	dir := flag.String("dir", "db/migrations", "migrations directory")
	flag.Parse()

	if err := internal.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		slog.Error("DATABASE_URL is not set")
		os.Exit(1)
	}
	if err := internal.Migrate(dsn, *dir, *down, slog.Default()); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}
