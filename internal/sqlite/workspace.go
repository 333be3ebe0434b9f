// Package sqlite persists the editing session between nvsedit invocations in
// a SQLite database in the data directory.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// DBFile is the workspace database file name.
const DBFile = "workspace.db"

// Workspace stores at most one session snapshot.
type Workspace struct {
	mu   sync.Mutex
	path string
	db   *sql.DB
}

// Open opens (creating if needed) the workspace database in dataDir.
func Open(dataDir string) (*Workspace, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, DBFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Workspace{path: path, db: db}, nil
}

func createSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (w *Workspace) Path() string { return w.path }

// Close releases the database. Close is idempotent.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// Save replaces the stored session with snap in one transaction.
func (w *Workspace) Save(snap *types.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("save workspace: nil snapshot")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return fmt.Errorf("save workspace: %s is closed", w.path)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(tx); err != nil {
		return err
	}

	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := tx.Exec(
		"INSERT INTO session (session_id, source, source_hash, partition_size, updated_at) VALUES (?, ?, ?, ?, ?)",
		snap.SessionID, snap.Source, int64(snap.SourceHash), snap.PartitionSize, updated.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := insertNamespaces(tx, snap.Namespaces); err != nil {
		return err
	}
	if err := insertEntries(tx, snap.Entries); err != nil {
		return err
	}
	if err := insertDiagnostics(tx, snap.Diagnostics); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (w *Workspace) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return fmt.Errorf("clear workspace: %s is closed", w.path)
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear transaction: %w", err)
	}
	defer tx.Rollback()
	if err := clearTables(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Load returns the stored session. Returns types.ErrNoSession when the
// workspace is empty.
func (w *Workspace) Load() (*types.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil, fmt.Errorf("load workspace: %s is closed", w.path)
	}

	snap := &types.Snapshot{}
	var hash int64
	var updated string
	err := w.db.QueryRow(
		"SELECT session_id, source, source_hash, partition_size, updated_at FROM session LIMIT 1",
	).Scan(&snap.SessionID, &snap.Source, &hash, &snap.PartitionSize, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	snap.SourceHash = uint64(hash)
	if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if snap.Namespaces, err = loadNamespaces(w.db); err != nil {
		return nil, err
	}
	if snap.Entries, err = loadEntries(w.db); err != nil {
		return nil, err
	}
	if snap.Diagnostics, err = loadDiagnostics(w.db); err != nil {
		return nil, err
	}
	return snap, nil
}

func clearTables(tx *sql.Tx) error {
	for _, table := range workspaceTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func insertNamespaces(tx *sql.Tx, defs []types.NamespaceDef) error {
	stmt, err := tx.Prepare("INSERT INTO namespaces (ns_index, name) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare namespace insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range defs {
		if _, err := stmt.Exec(d.Index, d.Name); err != nil {
			return fmt.Errorf("insert namespace %s: %w", d.Name, err)
		}
	}
	return nil
}

func insertEntries(tx *sql.Tx, entries []*types.Entry) error {
	stmt, err := tx.Prepare(`INSERT INTO entries
    (position, key, namespace, ns_index, type, kind, text, blob, display, raw)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range entries {
		raw, err := compress(e.Raw)
		if err != nil {
			return err
		}
		var blob []byte
		if e.Value.Kind == types.KindBytes {
			blob = e.Value.Bytes
			if blob == nil {
				blob = []byte{}
			}
		}
		if _, err := stmt.Exec(
			i, e.Key, e.Namespace, e.NamespaceIndex, e.Type,
			int(e.Value.Kind), e.Value.Text, blob, e.Display, raw,
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID(), err)
		}
	}
	return nil
}

func insertDiagnostics(tx *sql.Tx, diags []types.Diagnostic) error {
	stmt, err := tx.Prepare("INSERT INTO diagnostics (position, key, namespace, reason) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare diagnostic insert: %w", err)
	}
	defer stmt.Close()
	for i, d := range diags {
		if _, err := stmt.Exec(i, d.Key, d.Namespace, d.Reason); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	return nil
}

func loadNamespaces(db *sql.DB) ([]types.NamespaceDef, error) {
	rows, err := db.Query("SELECT ns_index, name FROM namespaces ORDER BY ns_index")
	if err != nil {
		return nil, fmt.Errorf("query namespaces: %w", err)
	}
	defer rows.Close()
	var defs []types.NamespaceDef
	for rows.Next() {
		var d types.NamespaceDef
		if err := rows.Scan(&d.Index, &d.Name); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func loadEntries(db *sql.DB) ([]*types.Entry, error) {
	rows, err := db.Query(`SELECT key, namespace, ns_index, type, kind, text, blob, display, raw
    FROM entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	var entries []*types.Entry
	for rows.Next() {
		var (
			e         types.Entry
			kind      int
			text      string
			blob, raw []byte
		)
		if err := rows.Scan(&e.Key, &e.Namespace, &e.NamespaceIndex, &e.Type, &kind, &text, &blob, &e.Display, &raw); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		switch types.ValueKind(kind) {
		case types.KindBytes:
			e.Value = types.BytesValue(blob)
		case types.KindInteger:
			e.Value = types.IntegerValue(text)
		default:
			e.Value = types.TextValue(text)
		}
		if e.Raw, err = decompress(raw); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID(), err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func loadDiagnostics(db *sql.DB) ([]types.Diagnostic, error) {
	rows, err := db.Query("SELECT key, namespace, reason FROM diagnostics ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	var diags []types.Diagnostic
	for rows.Next() {
		var d types.Diagnostic
		if err := rows.Scan(&d.Key, &d.Namespace, &d.Reason); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
