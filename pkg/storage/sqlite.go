package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteSessionStore implements SessionStore on a local SQLite database.
// Variables are stored as a JSON column.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore opens (or creates) the database at dbPath and
// applies migrations.
func NewSQLiteSessionStore(dbPath string) (*SQLiteSessionStore, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteSessionStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a session.
func (s *SQLiteSessionStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("cannot save nil session")
	}

	variables, err := json.Marshal(sess.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode session variables: %w", err)
	}

	query := `
		INSERT INTO sessions (id, user_id, flow_name, node_id, state, variables, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			node_id = excluded.node_id,
			state = excluded.state,
			variables = excluded.variables,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sess.UserID,
		sess.FlowName,
		sess.NodeID,
		string(sess.State),
		string(variables),
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by its ID.
func (s *SQLiteSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, flow_name, node_id, state, variables, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	return s.scanSession(s.db.QueryRowContext(ctx, query, id))
}

// GetByUser retrieves the user's session for the named flow.
func (s *SQLiteSessionStore) GetByUser(ctx context.Context, userID, flowName string) (*Session, error) {
	query := `
		SELECT id, user_id, flow_name, node_id, state, variables, created_at, updated_at
		FROM sessions
		WHERE user_id = ? AND flow_name = ?
	`
	return s.scanSession(s.db.QueryRowContext(ctx, query, userID, flowName))
}

// Delete removes a session by ID.
func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var state, variables string

	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.FlowName,
		&sess.NodeID,
		&state,
		&variables,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	sess.State = SessionState(state)
	if err := json.Unmarshal([]byte(variables), &sess.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode session variables: %w", err)
	}
	return &sess, nil
}
