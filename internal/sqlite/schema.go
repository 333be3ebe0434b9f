package sqlite

// Schema DDL for the workspace tables.
const (
	createSession = `CREATE TABLE IF NOT EXISTS session (
    session_id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    source_hash INTEGER NOT NULL,
    partition_size INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);`

	createNamespaces = `CREATE TABLE IF NOT EXISTS namespaces (
    ns_index INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);`

	createEntries = `CREATE TABLE IF NOT EXISTS entries (
    position INTEGER PRIMARY KEY,
    key TEXT NOT NULL,
    namespace TEXT NOT NULL,
    ns_index INTEGER NOT NULL,
    type TEXT NOT NULL,
    kind INTEGER NOT NULL,
    text TEXT NOT NULL,
    blob BLOB,
    display TEXT NOT NULL,
    raw BLOB
);`

	createDiagnostics = `CREATE TABLE IF NOT EXISTS diagnostics (
    position INTEGER PRIMARY KEY,
    key TEXT NOT NULL,
    namespace TEXT NOT NULL,
    reason TEXT NOT NULL
);`
)

// Index DDL.
const (
	idxEntriesIdentity = `CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_identity ON entries(namespace, key);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createSession,
	createNamespaces,
	createEntries,
	createDiagnostics,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxEntriesIdentity,
}

// workspaceTables lists the tables cleared on every save, children first.
var workspaceTables = []string{"diagnostics", "entries", "namespaces", "session"}
