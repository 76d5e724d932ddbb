package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/droidvault/droidvault/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    root TEXT NOT NULL,
    started_at TEXT NOT NULL, -- RFC3339
    finished_at TEXT NOT NULL, -- RFC3339
    copied INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    failed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`

// Mode says what kind of run a session row records.
type Mode string

const (
	ModeBackup          Mode = "backup"
	ModeBackupSelection Mode = "backup-selection"
	ModeRestore         Mode = "restore"
)

// Session is one recorded run.
type Session struct {
	ID         string
	Mode       Mode
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Copied     int
	Skipped    int
	Failed     int
}

// dbSession is the scan target; timestamps are stored as TEXT.
type dbSession struct {
	ID         string `db:"id"`
	Mode       string `db:"mode"`
	Root       string `db:"root"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Copied     int    `db:"copied"`
	Skipped    int    `db:"skipped"`
	Failed     int    `db:"failed"`
}

// Store keeps per-run statistics in SQLite. It is observability only: a
// broken store must never fail a backup, so callers log Record errors and
// move on.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Open the store and the underlying database.
func (s *Store) Open() error {
	if s.db != nil {
		return fmt.Errorf("history store already open")
	}

	database, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return fmt.Errorf("initialize history schema: %w", err)
	}

	s.db = database
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return fmt.Errorf("history store not open")
	}
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close history store", "error", err)
		return err
	}
	s.db = nil
	return nil
}

// Record inserts one session row. A missing ID gets a fresh uuid; zero
// timestamps default to now.
func (s *Store) Record(session *Session) error {
	if session == nil {
		return fmt.Errorf("cannot record nil session")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	if session.FinishedAt.IsZero() {
		session.FinishedAt = time.Now()
	}

	row := dbSession{
		ID:         session.ID,
		Mode:       string(session.Mode),
		Root:       session.Root,
		StartedAt:  session.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: session.FinishedAt.UTC().Format(time.RFC3339),
		Copied:     session.Copied,
		Skipped:    session.Skipped,
		Failed:     session.Failed,
	}

	query := `INSERT OR REPLACE INTO sessions (id, mode, root, started_at, finished_at, copied, skipped, failed)
	          VALUES (:id, :mode, :root, :started_at, :finished_at, :copied, :skipped, :failed)`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("record session %s: %w", session.ID, err)
	}
	slog.Debug("history recorded", "id", session.ID, "mode", session.Mode, "root", session.Root)
	return nil
}

// Recent returns the newest sessions, most recent first.
func (s *Store) Recent(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []dbSession
	err := s.db.Select(&rows, `SELECT id, mode, root, started_at, finished_at, copied, skipped, failed
	                           FROM sessions ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		startedAt, err := time.Parse(time.RFC3339, row.StartedAt)
		if err != nil {
			slog.Error("corrupt started_at in history row, skipping", "id", row.ID, "value", row.StartedAt)
			continue
		}
		finishedAt, err := time.Parse(time.RFC3339, row.FinishedAt)
		if err != nil {
			slog.Error("corrupt finished_at in history row, skipping", "id", row.ID, "value", row.FinishedAt)
			continue
		}
		sessions = append(sessions, &Session{
			ID:         row.ID,
			Mode:       Mode(row.Mode),
			Root:       row.Root,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Copied:     row.Copied,
			Skipped:    row.Skipped,
			Failed:     row.Failed,
		})
	}
	return sessions, nil
}

// Count returns the number of recorded sessions.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM sessions"); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
