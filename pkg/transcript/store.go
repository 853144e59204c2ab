package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/kuplace/kupletalk/pkg/api"
)

// Store archives every message the client displays into a local sqlite file.
// It is a write-behind record for later inspection; the in-memory message
// store remains the source of display truth.
type Store struct {
	db *sql.DB
}

// Entry is one archived message.
type Entry struct {
	ID           string
	ChatID       string
	Sender       api.Sender
	Content      string
	RecordedAtMs int64
}

func Open(path string) (*Store, error) {
	dsn, err := DSNForFile(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "transcript: open")
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			recorded_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_by_chat ON messages(chat_id, recorded_at_ms);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "transcript: migrate")
		}
	}
	return nil
}

// Record appends one message to the archive.
func (s *Store) Record(ctx context.Context, chatID string, sender api.Sender, content string) error {
	if s == nil || s.db == nil {
		return errors.New("transcript: db is nil")
	}
	if strings.TrimSpace(chatID) == "" {
		return errors.New("transcript: empty chat id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages(id, chat_id, sender, content, recorded_at_ms)
		VALUES(?, ?, ?, ?, ?)
	`, uuid.NewString(), chatID, string(sender), content, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "transcript: insert")
	}
	return nil
}

// List returns a chat's archived messages in recording order.
func (s *Store) List(ctx context.Context, chatID string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("transcript: db is nil")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, errors.New("transcript: empty chat id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, sender, content, recorded_at_ms
		FROM messages
		WHERE chat_id = ?
		ORDER BY recorded_at_ms ASC, id ASC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "transcript: query")
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var sender string
		if err := rows.Scan(&e.ID, &e.ChatID, &sender, &e.Content, &e.RecordedAtMs); err != nil {
			return nil, err
		}
		e.Sender = api.Sender(sender)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DSNForFile builds the sqlite DSN with the journal settings the archive
// relies on.
func DSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("transcript: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}
