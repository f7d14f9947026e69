package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// Checkpoints live in a single-file database, making this the default
// durable backend for single-process deployments:
//   - Zero-setup development and testing (":memory:" works too)
//   - Threads that must survive a process restart
//   - Prototyping before migrating to MySQL or Redis
//
// The store uses WAL mode for concurrent reads and a single-writer
// connection, which matches SQLite's locking model.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a SQLite-backed checkpoint store.
//
// The path is the database file location ("./stateflow.db", ":memory:" for a
// throwaway database). The store creates the schema on first use.
//
// Example:
//
//	st, err := store.NewSQLiteStore("./stateflow.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time; keep the single connection
	// alive so ":memory:" databases persist across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS thread_checkpoints (
			thread_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			step INTEGER NOT NULL,
			pending_nodes TEXT NOT NULL,
			join_node TEXT NOT NULL DEFAULT '',
			interrupt TEXT,
			updated_at TEXT NOT NULL
		)
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Get retrieves a thread's checkpoint.
func (s *SQLiteStore) Get(ctx context.Context, threadID string) (Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT state, step, pending_nodes, join_node, interrupt, updated_at
		FROM thread_checkpoints WHERE thread_id = ?`, threadID)
	return scanCheckpoint(row, threadID)
}

// Put writes a thread's checkpoint, replacing any previous one.
func (s *SQLiteStore) Put(ctx context.Context, cp Checkpoint) error {
	stateJSON, pendingJSON, interruptJSON, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO thread_checkpoints (thread_id, state, step, pending_nodes, join_node, interrupt, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			state = excluded.state,
			step = excluded.step,
			pending_nodes = excluded.pending_nodes,
			join_node = excluded.join_node,
			interrupt = excluded.interrupt,
			updated_at = excluded.updated_at`,
		cp.ThreadID, stateJSON, cp.Step, pendingJSON, cp.JoinNode, interruptJSON,
		cp.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Delete removes a thread's checkpoint. Unknown threads are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM thread_checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

// encodeCheckpoint serializes the JSON columns shared by the SQL backends.
func encodeCheckpoint(cp Checkpoint) (state, pending string, interrupt sql.NullString, err error) {
	stateBytes, err := json.Marshal(cp.State)
	if err != nil {
		return "", "", sql.NullString{}, fmt.Errorf("failed to marshal state: %w", err)
	}
	pendingBytes, err := json.Marshal(cp.PendingNodes)
	if err != nil {
		return "", "", sql.NullString{}, fmt.Errorf("failed to marshal pending nodes: %w", err)
	}
	if cp.Interrupt != nil {
		interruptBytes, err := json.Marshal(cp.Interrupt)
		if err != nil {
			return "", "", sql.NullString{}, fmt.Errorf("failed to marshal interrupt: %w", err)
		}
		interrupt = sql.NullString{String: string(interruptBytes), Valid: true}
	}
	return string(stateBytes), string(pendingBytes), interrupt, nil
}

// scanCheckpoint decodes a checkpoint row shared by the SQL backends.
func scanCheckpoint(row rowScanner, threadID string) (Checkpoint, error) {
	var (
		stateJSON     string
		step          int
		pendingJSON   string
		joinNode      string
		interruptJSON sql.NullString
		updatedAt     string
	)
	err := row.Scan(&stateJSON, &step, &pendingJSON, &joinNode, &interruptJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	cp := Checkpoint{
		ThreadID: threadID,
		Step:     step,
		JoinNode: joinNode,
	}
	if cp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to parse checkpoint timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(pendingJSON), &cp.PendingNodes); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to unmarshal pending nodes: %w", err)
	}
	if interruptJSON.Valid {
		cp.Interrupt = &InterruptRecord{}
		if err := json.Unmarshal([]byte(interruptJSON.String), cp.Interrupt); err != nil {
			return Checkpoint{}, fmt.Errorf("failed to unmarshal interrupt: %w", err)
		}
	}
	return cp, nil
}
