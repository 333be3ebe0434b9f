// Package csvbridge converts between an entry store and the
// namespace-grouped CSV consumed by the NVS partition generator.
//
// The generator requires the entries of a namespace to be contiguous and
// preceded by that namespace's definition row:
//
//	key,type,encoding,value
//	wifi,namespace,,
//	ssid,data,string,HomeAP
//	channel,data,u8,6
package csvbridge

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mesh-intelligence/nvsedit/internal/codec"
	"github.com/mesh-intelligence/nvsedit/internal/namespace"
	"github.com/mesh-intelligence/nvsedit/internal/store"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Column names of the CSV header.
const (
	ColKey      = "key"
	ColType     = "type"
	ColEncoding = "encoding"
	ColValue    = "value"
)

// Header is the header row written on export.
var Header = []string{ColKey, ColType, ColEncoding, ColValue}

// Row type column values.
const (
	RowNamespace = "namespace"
	RowData      = "data"
)

// DefaultNamespace receives data rows that precede any namespace row.
const DefaultNamespace = "default"

// Export writes every entry of s to w, grouped by namespace in first-seen
// order. The reserved placeholder group has no namespace row and is written
// first, ahead of any named group. Every other group is preceded by a
// namespace row. Unknown type tags fall back to hex2bin and entries holding
// the unreadable sentinel are skipped; both are reported as diagnostics.
func Export(w io.Writer, s *store.Store, progress types.ProgressFunc) ([]types.Diagnostic, error) {
	var diags []types.Diagnostic
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, g := range exportOrder(s.ByNamespace()) {
		if g.Namespace != namespace.Default {
			if err := cw.Write([]string{g.Namespace, RowNamespace, "", ""}); err != nil {
				return nil, fmt.Errorf("write namespace %s: %w", g.Namespace, err)
			}
		}
		for _, e := range g.Entries {
			if e.Value.IsUnreadable() {
				diags = append(diags, diag(e, "unreadable value not exported"))
				continue
			}
			token, ok := codec.Lookup(e.Type)
			if !ok {
				token = codec.Normalize(e.Type)
				diags = append(diags, diag(e, fmt.Sprintf("unknown type %q exported as %s", e.Type, token)))
			}
			row := []string{e.Key, RowData, token, codec.FormatValue(token, e.Value)}
			if err := cw.Write(row); err != nil {
				return nil, fmt.Errorf("write %s: %w", e.ID(), err)
			}
			report(progress, "writing "+e.ID().String())
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return diags, nil
}

// exportOrder moves the placeholder group to the front. Rows without a
// preceding namespace row are otherwise attributed to the group before them.
func exportOrder(groups []store.Group) []store.Group {
	i := slices.IndexFunc(groups, func(g store.Group) bool { return g.Namespace == namespace.Default })
	if i <= 0 {
		return groups
	}
	ordered := make([]store.Group, 0, len(groups))
	ordered = append(ordered, groups[i])
	ordered = append(ordered, groups[:i]...)
	return append(ordered, groups[i+1:]...)
}

// Result is the outcome of an import: a fresh registry and store.
type Result struct {
	Registry    *namespace.Registry
	Store       *store.Store
	Diagnostics []types.Diagnostic
}

// Import reads namespace-grouped CSV into a new registry and store. It never
// merges into existing state. A header lacking any of key, type, encoding or
// value returns ErrImportFormat and no data.
func Import(r io.Reader, progress types.ProgressFunc) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", types.ErrImportFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrImportFormat, err)
	}
	cols, err := columns(header)
	if err != nil {
		return nil, err
	}

	reg := namespace.New()
	res := &Result{Registry: reg, Store: store.New(reg)}
	current := DefaultNamespace

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrImportFormat, err)
		}
		key := cols.get(rec, ColKey)
		if strings.EqualFold(strings.TrimSpace(cols.get(rec, ColType)), RowNamespace) {
			current = key
			reg.IndexOf(current)
			continue
		}

		encoding := cols.get(rec, ColEncoding)
		e := &types.Entry{Key: key, Namespace: current, Type: encoding}
		val, err := codec.ParseValue(encoding, cols.get(rec, ColValue))
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, diag(e, err.Error()))
		}
		e.Value = val
		if err := res.Store.Add(e); err != nil {
			res.Diagnostics = append(res.Diagnostics, diag(e, "row skipped: "+err.Error()))
			continue
		}
		report(progress, "imported "+e.ID().String())
	}
	return res, nil
}

type columnIndex map[string]int

func columns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	var missing []string
	for _, want := range Header {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", types.ErrImportFormat, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columnIndex) get(rec []string, col string) string {
	i := c[col]
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}

func diag(e *types.Entry, reason string) types.Diagnostic {
	return types.Diagnostic{Key: e.Key, Namespace: e.Namespace, Reason: reason}
}

func report(progress types.ProgressFunc, status string) {
	if progress != nil {
		progress(status)
	}
}
