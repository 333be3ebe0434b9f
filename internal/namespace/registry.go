// Package namespace maps NVS namespace indices to names and back.
//
// Index 0 is reserved for the namespace-definition entries of a partition and
// is never assigned to a data namespace. Lookups never fail: an unknown index
// resolves to a placeholder name so that partially corrupt partitions can
// still be listed.
package namespace

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Reserved is the index used by namespace-definition entries.
const Reserved = 0

// Registry is a bidirectional index <-> name mapping owned by one session.
// It is not safe for concurrent use.
type Registry struct {
	names   map[int]string
	indices map[string]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		names:   make(map[int]string),
		indices: make(map[string]int),
	}
}

// Placeholder returns the synthesized name for an index without a definition.
func Placeholder(index int) string {
	return fmt.Sprintf("ns_%d", index)
}

// Default is the placeholder of the reserved index. Entries attributed to it
// are written to CSV without a namespace row.
var Default = Placeholder(Reserved)

// Resolve returns the name registered for index, or its placeholder.
func (r *Registry) Resolve(index int) string {
	if name, ok := r.names[index]; ok {
		return name
	}
	return Placeholder(index)
}

// Lookup returns the index registered for name.
func (r *Registry) Lookup(name string) (int, bool) {
	idx, ok := r.indices[name]
	return idx, ok
}

// IndexOf returns the index of name, registering it with the next free index
// (highest registered index plus one) when absent.
func (r *Registry) IndexOf(name string) int {
	if idx, ok := r.indices[name]; ok {
		return idx
	}
	idx := r.next()
	r.names[idx] = name
	r.indices[name] = idx
	return idx
}

// Define registers name at a fixed index, as read from a partition.
// Definitions at the reserved index are ignored. A later definition of the
// same index replaces the earlier one.
func (r *Registry) Define(index int, name string) bool {
	if index == Reserved || index < 0 {
		return false
	}
	if old, ok := r.names[index]; ok {
		delete(r.indices, old)
	}
	r.names[index] = name
	if _, ok := r.indices[name]; !ok {
		r.indices[name] = index
	}
	return true
}

// Reset clears every mapping.
func (r *Registry) Reset() {
	clear(r.names)
	clear(r.indices)
}

// Len returns the number of registered namespaces.
func (r *Registry) Len() int { return len(r.names) }

// Names returns the registered namespaces ordered by index.
func (r *Registry) Names() []types.NamespaceDef {
	defs := make([]types.NamespaceDef, 0, len(r.names))
	for idx, name := range r.names {
		defs = append(defs, types.NamespaceDef{Index: idx, Name: name})
	}
	slices.SortFunc(defs, func(a, b types.NamespaceDef) int { return a.Index - b.Index })
	return defs
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	cp := New()
	for idx, name := range r.names {
		cp.names[idx] = name
	}
	for name, idx := range r.indices {
		cp.indices[name] = idx
	}
	return cp
}

func (r *Registry) next() int {
	highest := Reserved
	for idx := range r.names {
		highest = max(highest, idx)
	}
	return highest + 1
}
