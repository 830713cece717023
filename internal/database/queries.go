package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Queries wraps the statements used by the server.
type Queries struct {
	db *sql.DB
}

// SessionFragment is the last persisted fragment of a session.
type SessionFragment struct {
	SessionID   string
	Fragment    string
	CreatedAtMs int64
	UpdatedAtMs int64
}

// UpsertFragment stores the fragment for a session. Last writer wins.
func (q *Queries) UpsertFragment(ctx context.Context, sessionID, fragment string, atMs int64) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("empty session id")
	}
	_, err := q.db.ExecContext(ctx, `
INSERT INTO session_fragments (session_id, fragment, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	fragment = excluded.fragment,
	updated_at_ms = excluded.updated_at_ms;
`, sessionID, fragment, atMs, atMs)
	return err
}

// FragmentByID returns the stored fragment for a session, or ErrNotFound.
func (q *Queries) FragmentByID(ctx context.Context, sessionID string) (SessionFragment, error) {
	var row SessionFragment
	err := q.db.QueryRowContext(ctx, `
SELECT session_id, fragment, created_at_ms, updated_at_ms
FROM session_fragments
WHERE session_id = ?
`, sessionID).Scan(&row.SessionID, &row.Fragment, &row.CreatedAtMs, &row.UpdatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionFragment{}, ErrNotFound
	}
	if err != nil {
		return SessionFragment{}, err
	}
	return row, nil
}

// ReplaceOfflineFiles swaps the cached file set of a scope in one
// transaction.
func (q *Queries) ReplaceOfflineFiles(ctx context.Context, scope, messageID string, files map[string]string, atMs int64) (err error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM offline_files WHERE scope = ?`, scope); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO offline_files (scope, path, content, message_id, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for path, content := range files {
		if _, err = stmt.ExecContext(ctx, scope, path, []byte(content), messageID, atMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// OfflineFiles returns every cached file grouped by scope.
func (q *Queries) OfflineFiles(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT scope, path, content FROM offline_files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var (
			scope, path string
			content     []byte
		)
		if err := rows.Scan(&scope, &path, &content); err != nil {
			return nil, err
		}
		if out[scope] == nil {
			out[scope] = make(map[string]string)
		}
		out[scope][path] = string(content)
	}
	return out, rows.Err()
}
