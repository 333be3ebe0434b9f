package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Field is a sortable entry column.
type Field int

// Sort fields in their canonical tie-break order.
const (
	FieldKey Field = iota
	FieldNamespace
	FieldType
	FieldValue
)

var canonicalOrder = []Field{FieldKey, FieldNamespace, FieldType, FieldValue}

var fieldNames = map[Field]string{
	FieldKey:       "key",
	FieldNamespace: "namespace",
	FieldType:      "type",
	FieldValue:     "value",
}

func (f Field) String() string { return fieldNames[f] }

// ParseField maps a column name to a Field. "ns" is accepted for namespace.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "key":
		return FieldKey, nil
	case "namespace", "ns":
		return FieldNamespace, nil
	case "type":
		return FieldType, nil
	case "value":
		return FieldValue, nil
	default:
		return FieldKey, fmt.Errorf("unknown sort field %q (valid: key, namespace, type, value)", s)
	}
}

// Query selects and orders entries for display.
type Query struct {
	Field     Field
	Ascending bool
	Search    string // Case-insensitive substring; empty keeps everything.
}

// Render filters and sorts entries without modifying the input slice.
//
// The sort key is the chosen field followed by the remaining fields in
// canonical order, each compared case-insensitively. Descending reverses the
// whole key, so tie-breaks reverse together with the primary field.
func Render(entries []*types.Entry, q Query) []*types.Entry {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]*types.Entry, 0, len(entries))
	for _, e := range entries {
		if needle == "" || matches(e, needle) {
			out = append(out, e)
		}
	}

	order := priority(q.Field)
	keys := make(map[*types.Entry][]string, len(out))
	for _, e := range out {
		k := make([]string, len(order))
		for i, f := range order {
			k[i] = strings.ToLower(fieldText(e, f))
		}
		keys[e] = k
	}
	slices.SortStableFunc(out, func(a, b *types.Entry) int {
		c := slices.Compare(keys[a], keys[b])
		if !q.Ascending {
			c = -c
		}
		return c
	})
	return out
}

// Render applies q to the entries of the store.
func (s *Store) Render(q Query) []*types.Entry {
	return Render(s.entries, q)
}

// Project builds display rows, truncating values to MaxDisplayValue runes.
func Project(entries []*types.Entry) []types.DisplayRow {
	rows := make([]types.DisplayRow, len(entries))
	for i, e := range entries {
		rows[i] = types.DisplayRow{
			Key:       e.Key,
			Namespace: e.Namespace,
			Type:      e.Type,
			Value:     Truncate(e.DisplayText(), types.MaxDisplayValue),
		}
	}
	return rows
}

// Truncate shortens s to n runes followed by "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func priority(primary Field) []Field {
	order := []Field{primary}
	for _, f := range canonicalOrder {
		if f != primary {
			order = append(order, f)
		}
	}
	return order
}

func matches(e *types.Entry, needle string) bool {
	for _, f := range canonicalOrder {
		if strings.Contains(strings.ToLower(fieldText(e, f)), needle) {
			return true
		}
	}
	return false
}

func fieldText(e *types.Entry, f Field) string {
	switch f {
	case FieldNamespace:
		return e.Namespace
	case FieldType:
		return e.Type
	case FieldValue:
		return e.Value.String()
	default:
		return e.Key
	}
}
