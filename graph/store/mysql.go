package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for:
//   - Production deployments requiring durable threads
//   - Multiple worker processes sharing one checkpoint backend
//   - Long-lived threads that must survive restarts and redeploys
//
// Concurrency across threads is handled by the database; the primary-key
// upsert makes Put atomic per thread.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore creates a MySQL-backed checkpoint store.
//
// The DSN format follows go-sql-driver/mysql:
//
//	user:password@tcp(localhost:3306)/stateflow
//
// Never hardcode credentials; read the DSN from the environment:
//
//	st, err := store.NewMySQLStore(os.Getenv("MYSQL_DSN"))
//
// The store creates its table on first use and configures a modest
// connection pool.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS thread_checkpoints (
			thread_id VARCHAR(255) PRIMARY KEY,
			state JSON NOT NULL,
			step INT NOT NULL,
			pending_nodes JSON NOT NULL,
			join_node VARCHAR(255) NOT NULL DEFAULT '',
			interrupt JSON,
			updated_at VARCHAR(64) NOT NULL
		) ENGINE=InnoDB
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Get retrieves a thread's checkpoint.
func (s *MySQLStore) Get(ctx context.Context, threadID string) (Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT state, step, pending_nodes, join_node, interrupt, updated_at
		FROM thread_checkpoints WHERE thread_id = ?`, threadID)
	return scanCheckpoint(row, threadID)
}

// Put writes a thread's checkpoint, replacing any previous one.
func (s *MySQLStore) Put(ctx context.Context, cp Checkpoint) error {
	stateJSON, pendingJSON, interruptJSON, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO thread_checkpoints (thread_id, state, step, pending_nodes, join_node, interrupt, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			state = VALUES(state),
			step = VALUES(step),
			pending_nodes = VALUES(pending_nodes),
			join_node = VALUES(join_node),
			interrupt = VALUES(interrupt),
			updated_at = VALUES(updated_at)`,
		cp.ThreadID, stateJSON, cp.Step, pendingJSON, cp.JoinNode, interruptJSON,
		cp.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Delete removes a thread's checkpoint. Unknown threads are a no-op.
func (s *MySQLStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM thread_checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
