package types

import "fmt"

// Entry is the canonical, namespace-resolved record edited by nvsedit.
type Entry struct {
	Key            string // Entry key (required, non-empty).
	Namespace      string // Namespace name.
	NamespaceIndex int    // Derived from Namespace through the registry.
	Type           string // Type tag as read from the partition, CSV or user.
	Value          Value
	Display        string // Optional display-only rendering; never exported.
	Raw            []byte // Source tree entry JSON, kept for diagnostics.
}

// ID returns the store identity of the entry.
func (e *Entry) ID() EntryID {
	return EntryID{Key: e.Key, Namespace: e.Namespace}
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	cp := *e
	if e.Value.Bytes != nil {
		cp.Value = BytesValue(e.Value.Bytes)
	}
	if e.Raw != nil {
		cp.Raw = append([]byte(nil), e.Raw...)
	}
	return &cp
}

// DisplayText returns the text shown for the entry value.
func (e *Entry) DisplayText() string {
	if e.Display != "" {
		return e.Display
	}
	return e.Value.String()
}

// EntryID identifies an entry within a store. (Key, Namespace) pairs are
// unique.
type EntryID struct {
	Key       string
	Namespace string
}

func (id EntryID) String() string {
	return fmt.Sprintf("%s:%s", id.Namespace, id.Key)
}

// MaxDisplayValue is the number of runes of a value shown in a DisplayRow.
const MaxDisplayValue = 100

// DisplayRow is the read-only projection of an Entry used for listing.
type DisplayRow struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// ProgressFunc receives human-readable status messages during long
// operations. Implementations must not block.
type ProgressFunc func(status string)

// Diagnostic is a non-fatal warning attributed to one entry.
type Diagnostic struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace"`
	Reason    string `json:"reason"`
}

func (d Diagnostic) String() string {
	if d.Key == "" && d.Namespace == "" {
		return d.Reason
	}
	return fmt.Sprintf("%s:%s: %s", d.Namespace, d.Key, d.Reason)
}
