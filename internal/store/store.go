// Package store holds the canonical entry collection of a session and the
// sort/filter query used to list it.
package store

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/nvsedit/internal/namespace"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Store is the ordered, authoritative collection of entries. (Key, Namespace)
// pairs are unique. Entries keep insertion order; Update edits in place.
// Store is not safe for concurrent use.
type Store struct {
	reg     *namespace.Registry
	entries []*types.Entry
	byID    map[types.EntryID]*types.Entry
}

// New returns an empty Store that resolves namespace indices through reg.
func New(reg *namespace.Registry) *Store {
	return &Store{
		reg:  reg,
		byID: make(map[types.EntryID]*types.Entry),
	}
}

// Registry returns the namespace registry the store resolves against.
func (s *Store) Registry() *namespace.Registry { return s.reg }

// Add appends e. Returns ErrInvalidKey for an empty key and ErrDuplicateKey
// if the (key, namespace) pair is already present; the store is unchanged on
// error.
func (s *Store) Add(e *types.Entry) error {
	if strings.TrimSpace(e.Key) == "" {
		return types.ErrInvalidKey
	}
	id := e.ID()
	if _, ok := s.byID[id]; ok {
		return fmt.Errorf("add %s: %w", id, types.ErrDuplicateKey)
	}
	e.NamespaceIndex = s.indexFor(e)
	s.entries = append(s.entries, e)
	s.byID[id] = e
	return nil
}

// Update replaces the fields of the entry identified by (oldKey,
// oldNamespace) with those of next, keeping its position.
func (s *Store) Update(oldKey, oldNamespace string, next *types.Entry) error {
	oldID := types.EntryID{Key: oldKey, Namespace: oldNamespace}
	cur, ok := s.byID[oldID]
	if !ok {
		return fmt.Errorf("update %s: %w", oldID, types.ErrNotFound)
	}
	if strings.TrimSpace(next.Key) == "" {
		return types.ErrInvalidKey
	}
	newID := next.ID()
	if newID != oldID {
		if _, taken := s.byID[newID]; taken {
			return fmt.Errorf("update %s to %s: %w", oldID, newID, types.ErrDuplicateKey)
		}
	}
	cur.Key = next.Key
	cur.Namespace = next.Namespace
	cur.Type = next.Type
	cur.Value = next.Value
	cur.Display = next.Display
	cur.Raw = next.Raw
	cur.NamespaceIndex = s.indexFor(cur)
	delete(s.byID, oldID)
	s.byID[newID] = cur
	return nil
}

// Remove deletes the entry identified by (key, namespace).
func (s *Store) Remove(key, ns string) error {
	id := types.EntryID{Key: key, Namespace: ns}
	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, types.ErrNotFound)
	}
	delete(s.byID, id)
	for i, cur := range s.entries {
		if cur == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the entry identified by (key, namespace).
func (s *Store) Get(key, ns string) (*types.Entry, bool) {
	e, ok := s.byID[types.EntryID{Key: key, Namespace: ns}]
	return e, ok
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// All returns the entries in insertion order. The slice is a copy; the
// entries are shared.
func (s *Store) All() []*types.Entry {
	out := make([]*types.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Group is the entries of one namespace.
type Group struct {
	Namespace string
	Entries   []*types.Entry
}

// ByNamespace groups the entries by namespace. Groups are ordered by the
// first appearance of their namespace; entries keep insertion order.
func (s *Store) ByNamespace() []Group {
	var groups []Group
	pos := make(map[string]int)
	for _, e := range s.entries {
		i, ok := pos[e.Namespace]
		if !ok {
			i = len(groups)
			pos[e.Namespace] = i
			groups = append(groups, Group{Namespace: e.Namespace})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// Namespaces returns the distinct namespaces in first-seen order.
func (s *Store) Namespaces() []string {
	groups := s.ByNamespace()
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Namespace
	}
	return names
}

// indexFor keeps an index that already resolves to the entry namespace (as
// set by partition ingest, including placeholders) and otherwise asks the
// registry. The reserved placeholder namespace is never registered.
func (s *Store) indexFor(e *types.Entry) int {
	if e.Namespace == namespace.Default {
		return namespace.Reserved
	}
	if e.NamespaceIndex != namespace.Reserved && s.reg.Resolve(e.NamespaceIndex) == e.Namespace {
		return e.NamespaceIndex
	}
	return s.reg.IndexOf(e.Namespace)
}
