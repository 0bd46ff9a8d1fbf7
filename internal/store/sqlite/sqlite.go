package sqlite

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/formrelay/internal/store"
)

//go:embed schema.sql
var schema string

// Sink implements store.Sink for SQLite.
type Sink struct {
	db *sqlx.DB
}

// Record is a stored message with its row metadata.
type Record struct {
	ID        int64
	Message   store.Message
	CreatedAt time.Time
}

type row struct {
	ID        int64     `db:"id"`
	Document  string    `db:"document"`
	CreatedAt time.Time `db:"created_at"`
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*Sink, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := createSchema(db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Sink{db: db}, nil
}

// createSchema runs src statement by statement. Comments are removed before
// splitting so a ';' inside a comment does not end a statement.
func createSchema(db *sqlx.DB, src string) error {
	for n, statement := range strings.Split(stripComments(src), ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("statement %d failed: %q: %w", n+1, statement, err)
		}
	}
	return nil
}

func stripComments(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Close closes the database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Insert stores msg as a JSON document.
func (s *Sink) Insert(ctx context.Context, msg store.Message) error {
	doc, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	query := `INSERT INTO messages (document, date) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, string(doc), msg[store.DateField]); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []row
	query := `SELECT id, document, created_at FROM messages ORDER BY id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		var msg store.Message
		if err := json.Unmarshal([]byte(r.Document), &msg); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", r.ID, err)
		}
		records = append(records, Record{ID: r.ID, Message: msg, CreatedAt: r.CreatedAt})
	}
	return records, nil
}
