// Package ingest turns the page/entry tree produced by the partition decoder
// into a namespace registry and an entry store.
package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// StateWritten is the entry state of live entries.
const StateWritten = "Written"

// Tree is the decoded partition as emitted by the decoder's JSON dump.
type Tree struct {
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Page is one flash page.
type Page struct {
	Entries []Entry `json:"entries"`
}

// Entry is one decoded 32-byte entry with its chunk children.
type Entry struct {
	State    string         `json:"state"`
	Key      string         `json:"key"`
	Metadata Metadata       `json:"metadata"`
	Data     map[string]any `json:"data"`
	Children []Chunk        `json:"children"`

	// Source is the JSON text of the entry, kept for diagnostics.
	Source []byte `json:"-"`
}

// Metadata is the entry header.
type Metadata struct {
	Namespace  int    `json:"namespace"`
	Type       string `json:"type"`
	Span       int    `json:"span"`
	ChunkIndex int    `json:"chunk_index"`
}

// Chunk is one raw fragment of a string or blob value.
type Chunk struct {
	Raw string `json:"raw"`
}

// ParseTree decodes the decoder's JSON output. Numbers are kept as
// json.Number so 64-bit values survive. Errors wrap types.ErrStructural.
func ParseTree(data []byte) (*Tree, error) {
	var tree Tree
	if err := decodeNumbers(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStructural, err)
	}
	if tree.Pages == nil {
		return nil, fmt.Errorf("%w: no pages in decoded partition", types.ErrStructural)
	}
	return &tree, nil
}

// UnmarshalJSON decodes the entry and keeps a copy of its JSON text.
func (e *Entry) UnmarshalJSON(b []byte) error {
	type plain Entry
	var p plain
	if err := decodeNumbers(b, &p); err != nil {
		return err
	}
	*e = Entry(p)
	e.Source = append([]byte(nil), b...)
	return nil
}

// Written reports whether the entry is live and keyed.
func (e *Entry) Written() bool {
	return strings.EqualFold(e.State, StateWritten) && e.Key != ""
}

// Fragments returns the non-empty chunk payloads in order.
func (e *Entry) Fragments() []string {
	var out []string
	for _, c := range e.Children {
		if c.Raw != "" {
			out = append(out, c.Raw)
		}
	}
	return out
}

// Scalar returns data.value as text and whether it is numeric.
func (e *Entry) Scalar() (string, bool) {
	switch v := e.Data["value"].(type) {
	case nil:
		return "", false
	case json.Number:
		return v.String(), true
	case string:
		return v, false
	case bool:
		return strconv.FormatBool(v), false
	default:
		return fmt.Sprint(v), false
	}
}

func decodeNumbers(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
