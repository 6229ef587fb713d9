// Package store provides SQLite persistence for repérages and their chat messages.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tOgg1/reperage/internal/models"
)

// Store errors.
var (
	ErrReportNotFound  = errors.New("report not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidMessage  = errors.New("invalid message")
)

const (
	defaultAuthorName = "Anonyme"
	defaultBusyMs     = 5000
)

// Store is a SQLite-backed message store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Options configures Open.
type Options struct {
	BusyTimeoutMs int
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	busy := opts.BusyTimeoutMs
	if busy <= 0 {
		busy = defaultBusyMs
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path, busy)
	return open(ctx, dsn)
}

// OpenInMemory opens a private in-memory database, used by tests.
func OpenInMemory(ctx context.Context) (*Store, error) {
	s, err := open(ctx, "file::memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, err
	}
	// Every pooled connection would otherwise get its own empty database.
	s.db.SetMaxOpenConns(1)
	return s, nil
}

func open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reperages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			titre TEXT NOT NULL DEFAULT '',
			fixer_nom TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reperage_id INTEGER NOT NULL REFERENCES reperages(id) ON DELETE CASCADE,
			auteur_type TEXT NOT NULL,
			auteur_nom TEXT NOT NULL,
			contenu TEXT NOT NULL,
			created_at TEXT NOT NULL,
			lu INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_reperage ON messages(reperage_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_lu ON messages(reperage_id, auteur_type, lu)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// CreateReport inserts a new repérage.
func (s *Store) CreateReport(ctx context.Context, title, fixerName string) (models.Report, error) {
	created := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reperages (titre, fixer_nom, created_at) VALUES (?, ?, ?)`,
		strings.TrimSpace(title), strings.TrimSpace(fixerName), formatTime(created),
	)
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to create report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to read report id: %w", err)
	}
	return models.Report{
		ID:        id,
		Title:     strings.TrimSpace(title),
		FixerName: strings.TrimSpace(fixerName),
		CreatedAt: created,
	}, nil
}

// GetReport loads a repérage by id.
func (s *Store) GetReport(ctx context.Context, id int64) (models.Report, error) {
	var (
		report    models.Report
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, titre, fixer_nom, created_at FROM reperages WHERE id = ?`, id,
	).Scan(&report.ID, &report.Title, &report.FixerName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, ErrReportNotFound
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to load report: %w", err)
	}
	report.CreatedAt = parseTime(createdAt)
	return report, nil
}

func (s *Store) ensureReport(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM reperages WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check report: %w", err)
	}
	return nil
}

// ListMessages returns the full history of a repérage, oldest first.
func (s *Store) ListMessages(ctx context.Context, reportID int64) ([]models.Message, error) {
	if err := s.ensureReport(ctx, reportID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reperage_id, auteur_type, auteur_nom, contenu, created_at, lu
		FROM messages
		WHERE reperage_id = ?
		ORDER BY created_at ASC, id ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return out, nil
}

// CreateMessage validates and stores a message in a repérage's conversation.
func (s *Store) CreateMessage(ctx context.Context, reportID int64, in models.NewMessage) (models.Message, error) {
	if strings.TrimSpace(string(in.AuthorType)) == "" {
		in.AuthorType = models.AuthorFixer
	}
	normalized, err := in.Normalize()
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if normalized.AuthorName == "" {
		normalized.AuthorName = defaultAuthorName
	}
	if err := s.ensureReport(ctx, reportID); err != nil {
		return models.Message{}, err
	}

	created := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (reperage_id, auteur_type, auteur_nom, contenu, created_at, lu)
		VALUES (?, ?, ?, ?, ?, 0)`,
		reportID, string(normalized.AuthorType), normalized.AuthorName, normalized.Content,
		formatTime(created),
	)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to store message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to read message id: %w", err)
	}

	return models.Message{
		ID:         id,
		ReportID:   reportID,
		AuthorType: normalized.AuthorType,
		AuthorName: normalized.AuthorName,
		Content:    normalized.Content,
		CreatedAt:  created,
	}, nil
}

// MarkRead sets the read flag. Marking an already read message is a no-op.
func (s *Store) MarkRead(ctx context.Context, messageID int64) (models.Message, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET lu = 1 WHERE id = ?`, messageID)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to mark message read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Message{}, ErrMessageNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, reperage_id, auteur_type, auteur_nom, contenu, created_at, lu
		FROM messages WHERE id = ?`, messageID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UnreadCount counts unread messages written by the counterpart of perspective.
func (s *Store) UnreadCount(ctx context.Context, reportID int64, perspective models.Perspective) (int, error) {
	if err := s.ensureReport(ctx, reportID); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE reperage_id = ? AND auteur_type = ? AND lu = 0`,
		reportID, string(models.Counterpart(perspective)),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		msg        models.Message
		authorType string
		createdAt  string
		read       int
	)
	if err := row.Scan(&msg.ID, &msg.ReportID, &authorType, &msg.AuthorName, &msg.Content, &createdAt, &read); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, err
		}
		return models.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.AuthorType = models.AuthorType(authorType)
	msg.CreatedAt = parseTime(createdAt)
	msg.Read = read != 0
	return msg, nil
}

// timeLayout is fixed width so that created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
