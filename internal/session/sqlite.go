package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	params_json  TEXT NOT NULL,
	bolt11       TEXT NOT NULL,
	payment_hash TEXT NOT NULL,
	amount_sats  INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	result_html  TEXT,
	claimed      INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	paid_at      INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_payment_hash ON sessions (payment_hash);
CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON sessions (status, created_at);
`

// SQLiteStore implements Store on a local SQLite database. The payment
// hash uniqueness rides on a UNIQUE index, and the CAS transition is a
// guarded UPDATE checked via RowsAffected.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// OpenSQLite creates or opens the session database at path and applies
// pragmas and schema. Safe to call multiple times.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, params_json, bolt11, payment_hash, amount_sats, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ParamsJSON, sess.Bolt11, sess.PaymentHash,
		sess.AmountSats, StatusPending, sess.CreatedAt.Unix(),
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return ErrDuplicate
		}
		// Driver versions differ in how they wrap constraint errors.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Session, error) {
	return s.getWhere(ctx, "session_id = ?", id)
}

func (s *SQLiteStore) GetByPaymentHash(ctx context.Context, hash string) (*Session, error) {
	return s.getWhere(ctx, "payment_hash = ?", hash)
}

func (s *SQLiteStore) getWhere(ctx context.Context, where string, arg string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, params_json, bolt11, payment_hash, amount_sats, status, result_html, created_at, paid_at
		 FROM sessions WHERE `+where, arg)

	var sess Session
	var resultHTML sql.NullString
	var createdAt int64
	var paidAt sql.NullInt64
	err := row.Scan(&sess.ID, &sess.ParamsJSON, &sess.Bolt11, &sess.PaymentHash,
		&sess.AmountSats, &sess.Status, &resultHTML, &createdAt, &paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.ResultHTML = resultHTML.String
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	if paidAt.Valid {
		sess.PaidAt = time.Unix(paidAt.Int64, 0).UTC()
	}
	return &sess, nil
}

// UpdateStatus applies expected -> newStatus with the status check folded
// into the UPDATE's WHERE clause; RowsAffected==0 means the transition was
// already made (or the id is unknown) and surfaces as ErrStatusMismatch.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id, expected, newStatus string, extra Extra) error {
	var res sql.Result
	var err error
	switch newStatus {
	case StatusPaid:
		paidAt := extra.PaidAt
		if paidAt.IsZero() {
			paidAt = s.nowFunc()
		}
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, paid_at = ? WHERE session_id = ? AND status = ?`,
			newStatus, paidAt.Unix(), id, expected)
	case StatusComplete:
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, result_html = ? WHERE session_id = ? AND status = ?`,
			newStatus, extra.ResultHTML, id, expected)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ? WHERE session_id = ? AND status = ?`,
			newStatus, id, expected)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStatusMismatch
	}
	return nil
}

// ClaimOldestPending pops the oldest unclaimed pending session. The claim
// marker write is guarded on the row still being unclaimed, so two
// concurrent callers can never walk away with the same id.
func (s *SQLiteStore) ClaimOldestPending(ctx context.Context) (string, error) {
	for attempt := 0; attempt < claimRetries; attempt++ {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT session_id FROM sessions WHERE status = ? AND claimed = 0
			 ORDER BY created_at, session_id LIMIT 1`, StatusPending).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("select pending: %w", err)
		}

		res, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET claimed = 1 WHERE session_id = ? AND status = ? AND claimed = 0`,
			id, StatusPending)
		if err != nil {
			return "", fmt.Errorf("claim update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("rows affected: %w", err)
		}
		if n == 1 {
			return id, nil
		}
		// Lost the race on this candidate; re-select.
	}
	return "", ErrNotFound
}
