package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/devcon26/registration-api/repositories"
)

// TxBeginner — то, что нужно сервису от *sql.DB для транзакций.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// withTx выполняет fn в транзакции: commit при nil, rollback при ошибке или панике.
func withTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, logger *slog.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.ErrorContext(ctx, "Rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

var _ repositories.SQLExecutor = (*sql.Tx)(nil)

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText убирает HTML и лишние пробелы из пользовательского текста.
// StrictPolicy экранирует сущности, их возвращаем обратно ("R&D", а не "R&amp;D").
func sanitizeText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(s))), " ")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Без 0/O и 1/I, чтобы код было проще продиктовать на стойке регистрации.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	joinCodeLength      = 6
	joinCodeMaxAttempts = 3
)

func generateJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}

func normalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
