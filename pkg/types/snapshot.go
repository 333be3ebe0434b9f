package types

import "time"

// NamespaceDef is one registered namespace.
type NamespaceDef struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Snapshot is the complete, persistable state of an editing session.
type Snapshot struct {
	SessionID     string
	Source        string // Path of the partition or CSV the session was loaded from.
	SourceHash    uint64 // xxh3 fingerprint of the source bytes.
	PartitionSize int64  // Zero when the session was not loaded from a partition.
	Namespaces    []NamespaceDef
	Entries       []*Entry
	Diagnostics   []Diagnostic
	UpdatedAt     time.Time
}
