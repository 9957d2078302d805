package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWaitForReady_SucceedsAfterRetries(t *testing.T) {
	p := &flakyPinger{failures: 2}

	err := WaitForReady(context.Background(), p, 5, time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("WaitForReady() error = %v", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestWaitForReady_GivesUp(t *testing.T) {
	p := &flakyPinger{failures: 10}

	err := WaitForReady(context.Background(), p, 3, time.Millisecond, discardLogger())
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestWaitForReady_StopsOnCancel(t *testing.T) {
	p := &flakyPinger{failures: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForReady(ctx, p, 5, time.Hour, discardLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEnsureSchema_StopsOnFirstFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS participants").WillReturnError(errors.New("permission denied"))

	if err := EnsureSchema(context.Background(), conn); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBootstrap_AppliesSchemaAfterFailedWait(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	for range schemaStatements {
		mock.ExpectExec("CREATE (TABLE|INDEX) IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if ok := Bootstrap(context.Background(), conn, 2, time.Millisecond, discardLogger()); !ok {
		t.Fatal("Bootstrap() = false, want schema applied")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBootstrap_SchemaFailureIsNotFatal(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

	if ok := Bootstrap(context.Background(), conn, 1, time.Millisecond, discardLogger()); ok {
		t.Fatal("Bootstrap() = true after schema failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
