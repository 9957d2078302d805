package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// schemaStatements создают таблицы, если их ещё нет. Имена ограничений
// используются репозиториями при разборе pq.Error.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          SERIAL PRIMARY KEY,
		full_name   TEXT NOT NULL,
		email       TEXT NOT NULL,
		university  TEXT NOT NULL DEFAULT '',
		student_id  TEXT,
		role        TEXT NOT NULL DEFAULT 'participant',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_role_check CHECK (role IN ('participant', 'ambassador', 'admin'))
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id            SERIAL PRIMARY KEY,
		user_id       INTEGER NOT NULL,
		track         TEXT NOT NULL,
		team_id       INTEGER,
		is_team_lead  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT participants_user_id_key UNIQUE (user_id),
		CONSTRAINT participants_user_id_fkey FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id                     SERIAL PRIMARY KEY,
		name                   TEXT NOT NULL,
		track                  TEXT NOT NULL,
		leader_participant_id  INTEGER NOT NULL,
		join_code              TEXT NOT NULL,
		member_count           INTEGER NOT NULL DEFAULT 1,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT teams_name_key UNIQUE (name),
		CONSTRAINT teams_join_code_key UNIQUE (join_code),
		CONSTRAINT teams_leader_participant_id_fkey FOREIGN KEY (leader_participant_id) REFERENCES participants (id)
	)`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'participants_team_id_fkey') THEN
			ALTER TABLE participants
				ADD CONSTRAINT participants_team_id_fkey FOREIGN KEY (team_id) REFERENCES teams (id);
		END IF;
	END $$`,
	`CREATE TABLE IF NOT EXISTS payments (
		id              SERIAL PRIMARY KEY,
		participant_id  INTEGER NOT NULL,
		team_id         INTEGER,
		amount          BIGINT NOT NULL,
		method          TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending',
		transaction_id  TEXT,
		receipt_path    TEXT,
		verified_by     INTEGER,
		verified_at     TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT payments_participant_id_key UNIQUE (participant_id),
		CONSTRAINT payments_participant_id_fkey FOREIGN KEY (participant_id) REFERENCES participants (id),
		CONSTRAINT payments_team_id_fkey FOREIGN KEY (team_id) REFERENCES teams (id),
		CONSTRAINT payments_verified_by_fkey FOREIGN KEY (verified_by) REFERENCES users (id),
		CONSTRAINT payments_method_check CHECK (method IN ('online', 'cash')),
		CONSTRAINT payments_status_check CHECK (status IN ('pending', 'verified', 'rejected'))
	)`,
	`CREATE INDEX IF NOT EXISTS payments_status_idx ON payments (status)`,
	`CREATE INDEX IF NOT EXISTS users_student_id_idx ON users (student_id)`,
}

// EnsureSchema создаёт таблицы приложения. Ошибка не фатальна для старта:
// вызывающий код логирует её и продолжает работу.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Bootstrap ждёт базу и создаёт таблицы. Схема применяется даже если
// ожидание не дождалось ответа: обе ошибки только логируются, старт не
// прерывается. Возвращает true, если схема готова.
func Bootstrap(ctx context.Context, db *sql.DB, attempts int, interval time.Duration, logger *slog.Logger) bool {
	if err := WaitForReady(ctx, db, attempts, interval, logger); err != nil {
		logger.Error("database is not reachable, continuing startup", slog.Any("error", err))
	}
	if err := EnsureSchema(ctx, db); err != nil {
		logger.Error("failed to create tables, continuing startup", slog.Any("error", err))
		return false
	}
	logger.Info("database schema ready")
	return true
}
