package editor

import (
	"fmt"

	"github.com/mesh-intelligence/nvsedit/internal/namespace"
	"github.com/mesh-intelligence/nvsedit/internal/store"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Snapshot captures the session for persistence. Entries are deep copies.
func (s *Session) Snapshot() *types.Snapshot {
	all := s.store.All()
	entries := make([]*types.Entry, len(all))
	for i, e := range all {
		entries[i] = e.Clone()
	}
	return &types.Snapshot{
		SessionID:     s.id,
		Source:        s.source,
		SourceHash:    s.sourceHash,
		PartitionSize: s.partitionSize,
		Namespaces:    s.reg.Names(),
		Entries:       entries,
		Diagnostics:   append([]types.Diagnostic(nil), s.diags...),
		UpdatedAt:     s.updatedAt,
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap *types.Snapshot, opts ...Option) (*Session, error) {
	s := New(opts...)
	reg := namespace.New()
	for _, def := range snap.Namespaces {
		reg.Define(def.Index, def.Name)
	}
	st := store.New(reg)
	for _, e := range snap.Entries {
		if err := st.Add(e.Clone()); err != nil {
			return nil, fmt.Errorf("restore session %s: %w", snap.SessionID, err)
		}
	}
	s.reg = reg
	s.store = st
	s.diags = append([]types.Diagnostic(nil), snap.Diagnostics...)
	if snap.SessionID != "" {
		s.id = snap.SessionID
	}
	s.source = snap.Source
	s.sourceHash = snap.SourceHash
	s.partitionSize = snap.PartitionSize
	s.updatedAt = snap.UpdatedAt
	return s, nil
}
