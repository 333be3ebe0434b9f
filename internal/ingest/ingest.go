package ingest

import (
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/nvsedit/internal/codec"
	"github.com/mesh-intelligence/nvsedit/internal/namespace"
	"github.com/mesh-intelligence/nvsedit/internal/store"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Result is a freshly built registry and store.
type Result struct {
	Registry    *namespace.Registry
	Store       *store.Store
	Diagnostics []types.Diagnostic
}

// Ingest walks tree twice. The first pass registers every namespace
// definition (entries in the reserved namespace, whose value is the index
// being defined); the second builds entries for every other written entry.
// blob_index entries, undecodable chunks and duplicates are reported as
// diagnostics and never abort the walk.
func Ingest(tree *Tree, progress types.ProgressFunc) (*Result, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: empty tree", types.ErrStructural)
	}
	reg := namespace.New()
	res := &Result{Registry: reg, Store: store.New(reg)}

	for _, e := range written(tree, true) {
		text, numeric := e.Scalar()
		idx, err := strconv.Atoi(text)
		if !numeric || err != nil {
			res.warn(e.Key, "", fmt.Sprintf("namespace definition has no index (value %q)", text))
			continue
		}
		if prev, ok := reg.Lookup(e.Key); ok && prev != idx {
			res.warn(e.Key, "", fmt.Sprintf("namespace also defined at index %d", prev))
		}
		if !reg.Define(idx, e.Key) {
			res.warn(e.Key, "", fmt.Sprintf("namespace definition uses reserved index %d", idx))
		}
	}

	for _, e := range written(tree, false) {
		ns := e.Metadata.Namespace
		name := reg.Resolve(ns)
		if e.Metadata.Type == codec.TagBlobIndex {
			res.warn(e.Key, name, "blob_index skipped")
			continue
		}

		entry := &types.Entry{
			Key:            e.Key,
			Namespace:      name,
			NamespaceIndex: ns,
			Type:           e.Metadata.Type,
			Raw:            e.Source,
		}
		frags := e.Fragments()
		switch {
		case (entry.Type == codec.TagString || entry.Type == codec.TagBlobData) && len(frags) > 0:
			rec, err := codec.Reconstruct(entry.Type, frags)
			if err != nil {
				res.warn(e.Key, name, "blob decode failed: "+err.Error())
			}
			entry.Value = rec.Value
			entry.Display = rec.Display
		default:
			text, numeric := e.Scalar()
			if numeric {
				entry.Value = types.IntegerValue(text)
			} else {
				entry.Value = types.TextValue(text)
			}
		}

		if err := res.Store.Add(entry); err != nil {
			res.warn(e.Key, name, "entry skipped: "+err.Error())
			continue
		}
		if progress != nil {
			progress("loading " + entry.ID().String())
		}
	}
	return res, nil
}

func (r *Result) warn(key, ns, reason string) {
	r.Diagnostics = append(r.Diagnostics, types.Diagnostic{Key: key, Namespace: ns, Reason: reason})
}

// written returns the written entries of tree, either the namespace
// definitions (defs) or the data entries.
func written(tree *Tree, defs bool) []*Entry {
	var out []*Entry
	for pi := range tree.Pages {
		page := &tree.Pages[pi]
		for ei := range page.Entries {
			e := &page.Entries[ei]
			if !e.Written() {
				continue
			}
			if (e.Metadata.Namespace == namespace.Reserved) == defs {
				out = append(out, e)
			}
		}
	}
	return out
}
