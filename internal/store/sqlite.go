package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/edupath/internal/domain"
	"github.com/ashureev/edupath/internal/shared"
	_ "modernc.org/sqlite"
)

const defaultListLimit = 100

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS processes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		process_type TEXT NOT NULL,
		steps_json TEXT NOT NULL,
		current_index INTEGER NOT NULL DEFAULT 0,
		history_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_processes_user ON processes(user_id, updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateProcess persists a new process instance.
func (s *SQLiteStore) CreateProcess(ctx context.Context, p *domain.ProcessInstance) error {
	stepsJSON, historyJSON, err := marshalProcess(p)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO processes (id, user_id, topic, process_type, steps_json, current_index, history_json, version, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Topic, string(p.ProcessType),
		stepsJSON, p.CurrentIndex, historyJSON,
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert process: %w", err)
	}
	p.Version = 1
	return nil
}

// GetProcess retrieves a process by id.
func (s *SQLiteStore) GetProcess(ctx context.Context, id string) (*domain.ProcessInstance, error) {
	query := `
		SELECT id, user_id, topic, process_type, steps_json, current_index,
		       history_json, version, created_at, updated_at
		FROM processes WHERE id = ?`

	p, err := scanProcess(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan process row: %w", err)
	}
	return p, nil
}

// UpdateProcess writes back a full process instance with an optimistic
// version check. Retries a few times on SQLITE_BUSY before giving up.
func (s *SQLiteStore) UpdateProcess(ctx context.Context, p *domain.ProcessInstance) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.updateProcessOnce(ctx, p)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("UpdateProcess hit SQLITE_BUSY, retrying",
				"process_id", p.ID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("update process %s after %d attempts: %w", p.ID, maxRetries, err)
}

func (s *SQLiteStore) updateProcessOnce(ctx context.Context, p *domain.ProcessInstance) error {
	stepsJSON, historyJSON, err := marshalProcess(p)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now()
	query := `
		UPDATE processes
		SET topic = ?, process_type = ?, steps_json = ?, current_index = ?,
		    history_json = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	result, err := s.db.ExecContext(ctx, query,
		p.Topic, string(p.ProcessType), stepsJSON, p.CurrentIndex,
		historyJSON, p.UpdatedAt.Unix(),
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the id vanished or another writer bumped the version.
		var current int64
		row := s.db.QueryRowContext(ctx, `SELECT version FROM processes WHERE id = ?`, p.ID)
		if scanErr := row.Scan(&current); scanErr == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("%w: process %s", ErrConflict, p.ID)
	}

	p.Version++
	return nil
}

// ListProcesses returns processes ordered by most recently updated.
func (s *SQLiteStore) ListProcesses(ctx context.Context, userID string, limit int) ([]*domain.ProcessInstance, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, user_id, topic, process_type, steps_json, current_index,
		       history_json, version, created_at, updated_at
		FROM processes`
	args := []interface{}{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close process rows", "error", closeErr)
		}
	}()

	var out []*domain.ProcessInstance
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan process row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processes: %w", err)
	}

	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func marshalProcess(p *domain.ProcessInstance) (stepsJSON, historyJSON string, err error) {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return "", "", fmt.Errorf("marshal steps: %w", err)
	}
	history := p.History
	if history == nil {
		history = []domain.StepResult{}
	}
	hist, err := json.Marshal(history)
	if err != nil {
		return "", "", fmt.Errorf("marshal history: %w", err)
	}
	return string(steps), string(hist), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProcess(row rowScanner) (*domain.ProcessInstance, error) {
	var p domain.ProcessInstance
	var processType, stepsJSON, historyJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&p.ID, &p.UserID, &p.Topic, &processType, &stepsJSON,
		&p.CurrentIndex, &historyJSON, &p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ProcessType = domain.ProcessType(processType)
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &p.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}

	return &p, nil
}
