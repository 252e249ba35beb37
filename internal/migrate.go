package internal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies (or, with down set, reverts) every migration in dir.
func Migrate(databaseURL, dir string, down bool, logger *slog.Logger) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logVersion(resolveLogger(logger), m, down)
	return nil
}

type versioner interface {
	Version() (uint, bool, error)
}

func logVersion(logger *slog.Logger, m versioner, down bool) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Warn("migration version unknown", "down", down, "error", err)
		return
	}
	logger.Info("database migrations applied", "version", version, "dirty", dirty, "down", down)
}
