package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/daybookhq/daybook/internal/model"
)

// SQLiteStore persists workspaces in an embedded SQLite database.
//
// Each account's workspace is one JSON blob in the workspaces table, so a
// Save is a single-row atomic replace. The database runs in WAL mode for
// concurrent readers.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path and initializes the
// schema. The caller must Close() the store when done.
//
// Example:
//
//	st, err := store.OpenSQLite(".daybook/daybook.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &SQLiteStore{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := st.conn.Exec(pragma); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if err := st.initSchema(context.Background()); err != nil {
		_ = st.Close()
		return nil, err
	}

	return st, nil
}

// initSchema creates tables if they don't exist. Idempotent.
func (st *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		contact TEXT NOT NULL UNIQUE,
		style TEXT,
		secret_hash BLOB,
		created_at TEXT NOT NULL
	);

	-- One JSON blob per account; every sync is a full replace.
	CREATE TABLE IF NOT EXISTS workspaces (
		account_id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_contact ON accounts(contact);
	`

	if _, err := st.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the connection after checkpointing the WAL.
func (st *SQLiteStore) Close() error {
	if st.conn == nil {
		return nil
	}
	if _, err := st.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := st.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	st.conn = nil
	return nil
}

func (st *SQLiteStore) Load(ctx context.Context, accountID string) (*model.Workspace, error) {
	var payload []byte
	err := st.conn.QueryRowContext(ctx,
		"SELECT payload FROM workspaces WHERE account_id = ?", accountID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultWorkspace(), nil
	}
	if err != nil {
		return nil, &unavailableError{cause: err}
	}

	var ws model.Workspace
	if err := json.Unmarshal(payload, &ws); err != nil {
		return nil, &unavailableError{cause: fmt.Errorf("corrupt workspace payload: %w", err)}
	}
	if ws.Tasks == nil {
		ws.Tasks = []*model.Task{}
	}
	if ws.Team == nil {
		ws.Team = []string{model.Self}
	}
	return &ws, nil
}

func (st *SQLiteStore) Save(ctx context.Context, accountID string, ws *model.Workspace) error {
	// Serialize fully before touching durable state.
	payload, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	query := `
	INSERT INTO workspaces (account_id, payload, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(account_id) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`
	if _, err := st.conn.ExecContext(ctx, query,
		accountID, payload, time.Now().Format(time.RFC3339)); err != nil {
		return &unavailableError{cause: err}
	}
	return nil
}

// DeleteTask implements the fine-grained TaskDeleter path: the stored blob
// is rewritten without the task, inside one transaction.
func (st *SQLiteStore) DeleteTask(ctx context.Context, accountID, taskID string) error {
	tx, err := st.conn.BeginTx(ctx, nil)
	if err != nil {
		return &unavailableError{cause: err}
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx,
		"SELECT payload FROM workspaces WHERE account_id = ?", accountID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // nothing stored, nothing to delete
	}
	if err != nil {
		return &unavailableError{cause: err}
	}

	var ws model.Workspace
	if err := json.Unmarshal(payload, &ws); err != nil {
		return &unavailableError{cause: fmt.Errorf("corrupt workspace payload: %w", err)}
	}
	if !ws.RemoveTask(taskID) {
		return nil // idempotent
	}

	updated, err := json.Marshal(&ws)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE workspaces SET payload = ?, updated_at = ? WHERE account_id = ?",
		updated, time.Now().Format(time.RFC3339), accountID); err != nil {
		return &unavailableError{cause: err}
	}

	if err := tx.Commit(); err != nil {
		return &unavailableError{cause: err}
	}
	return nil
}

func (st *SQLiteStore) SaveAccount(ctx context.Context, rec AccountRecord) error {
	query := `
	INSERT INTO accounts (id, display_name, contact, style, secret_hash, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := st.conn.ExecContext(ctx, query,
		rec.Account.ID,
		rec.Account.DisplayName,
		rec.Account.Contact,
		rec.Account.Style,
		rec.SecretHash,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		var serr *sqlite3.Error
		if errors.As(err, &serr) {
			switch serr.ExtendedCode() {
			case sqlite3.CONSTRAINT_UNIQUE, sqlite3.CONSTRAINT_PRIMARYKEY:
				return ErrConflict
			}
		}
		return &unavailableError{cause: err}
	}
	return nil
}

func (st *SQLiteStore) AccountByContact(ctx context.Context, contact string) (AccountRecord, error) {
	row := st.conn.QueryRowContext(ctx,
		"SELECT id, display_name, contact, style, secret_hash FROM accounts WHERE contact = ?", contact)
	return scanAccount(row)
}

func (st *SQLiteStore) AccountByID(ctx context.Context, id string) (model.Account, error) {
	row := st.conn.QueryRowContext(ctx,
		"SELECT id, display_name, contact, style, secret_hash FROM accounts WHERE id = ?", id)
	rec, err := scanAccount(row)
	return rec.Account, err
}

func scanAccount(row *sql.Row) (AccountRecord, error) {
	var rec AccountRecord
	var style sql.NullString
	err := row.Scan(
		&rec.Account.ID,
		&rec.Account.DisplayName,
		&rec.Account.Contact,
		&style,
		&rec.SecretHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return AccountRecord{}, ErrNotFound
	}
	if err != nil {
		return AccountRecord{}, &unavailableError{cause: err}
	}
	rec.Account.Style = style.String
	return rec, nil
}

func (st *SQLiteStore) Export(ctx context.Context) (string, error) {
	snap := &Snapshot{Workspaces: map[string]*model.Workspace{}}

	rows, err := st.conn.QueryContext(ctx,
		"SELECT id, display_name, contact, style, secret_hash FROM accounts ORDER BY created_at")
	if err != nil {
		return "", &unavailableError{cause: err}
	}
	defer rows.Close()
	for rows.Next() {
		var rec AccountRecord
		var style sql.NullString
		if err := rows.Scan(&rec.Account.ID, &rec.Account.DisplayName,
			&rec.Account.Contact, &style, &rec.SecretHash); err != nil {
			return "", &unavailableError{cause: err}
		}
		rec.Account.Style = style.String
		snap.Accounts = append(snap.Accounts, rec)
	}
	if err := rows.Err(); err != nil {
		return "", &unavailableError{cause: err}
	}

	wrows, err := st.conn.QueryContext(ctx, "SELECT account_id, payload FROM workspaces")
	if err != nil {
		return "", &unavailableError{cause: err}
	}
	defer wrows.Close()
	for wrows.Next() {
		var id string
		var payload []byte
		if err := wrows.Scan(&id, &payload); err != nil {
			return "", &unavailableError{cause: err}
		}
		var ws model.Workspace
		if err := json.Unmarshal(payload, &ws); err != nil {
			return "", &unavailableError{cause: fmt.Errorf("corrupt workspace payload for %s: %w", id, err)}
		}
		snap.Workspaces[id] = &ws
	}
	if err := wrows.Err(); err != nil {
		return "", &unavailableError{cause: err}
	}

	return EncodeSnapshot(snap)
}

func (st *SQLiteStore) Import(ctx context.Context, encoded string) error {
	// Decode and validate everything before the transaction opens, so a
	// malformed snapshot cannot touch the database at all.
	snap, err := DecodeSnapshot(encoded)
	if err != nil {
		return err
	}

	tx, err := st.conn.BeginTx(ctx, nil)
	if err != nil {
		return &unavailableError{cause: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM workspaces"); err != nil {
		return &unavailableError{cause: err}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM accounts"); err != nil {
		return &unavailableError{cause: err}
	}

	now := time.Now().Format(time.RFC3339)
	for _, rec := range snap.Accounts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO accounts (id, display_name, contact, style, secret_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			rec.Account.ID, rec.Account.DisplayName, rec.Account.Contact,
			rec.Account.Style, rec.SecretHash, now); err != nil {
			return &unavailableError{cause: err}
		}
	}
	for id, ws := range snap.Workspaces {
		payload, err := json.Marshal(ws)
		if err != nil {
			return fmt.Errorf("failed to marshal workspace %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO workspaces (account_id, payload, updated_at) VALUES (?, ?, ?)",
			id, payload, now); err != nil {
			return &unavailableError{cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &unavailableError{cause: err}
	}
	return nil
}
