package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Import postgres driver
)

// Open создаёт пул соединений, не проверяя доступность базы.
// Проверка выполняется отдельно через WaitForReady.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Pinger — то, что нужно WaitForReady от пула (позволяет подменять в тестах).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitForReady опрашивает базу до attempts раз с паузой interval.
// Возвращает последнюю ошибку, если база так и не ответила.
func WaitForReady(ctx context.Context, db Pinger, attempts int, interval time.Duration, logger *slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			logger.Info("database connection successful", slog.Int("attempt", attempt))
			return nil
		}

		logger.Warn("database connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", lastErr),
		)

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("database not ready after %d attempts: %w", attempts, lastErr)
}
