package types

import (
	"bytes"
	"encoding/hex"
	"unicode/utf8"
)

// ValueKind tags the representation held by a Value.
type ValueKind int

// Value kinds.
const (
	KindText ValueKind = iota
	KindBytes
	KindInteger
)

// String returns the lowercase kind name.
func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindInteger:
		return "integer"
	default:
		return "unknown"
	}
}

// Unreadable is the text carried by entries whose chunk payload could not be
// reconstructed.
const Unreadable = "<unreadable binary data>"

// Value is the tagged variant stored in an Entry. Text and Integer keep their
// canonical text in Text; Bytes keeps raw bytes in Bytes.
type Value struct {
	Kind  ValueKind
	Text  string
	Bytes []byte
}

// TextValue returns a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// BytesValue returns a bytes value holding a copy of b.
func BytesValue(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Kind: KindBytes, Bytes: cp}
}

// IntegerValue returns an integer value from its decimal text.
func IntegerValue(decimal string) Value { return Value{Kind: KindInteger, Text: decimal} }

// UnreadableValue returns the sentinel given to undecodable blobs.
func UnreadableValue() Value { return TextValue(Unreadable) }

// IsUnreadable reports whether v is the undecodable-blob sentinel.
func (v Value) IsUnreadable() bool {
	return v.Kind == KindText && v.Text == Unreadable
}

// String returns the value as text. Bytes render as UTF-8 when valid and as
// lowercase hex otherwise.
func (v Value) String() string {
	switch v.Kind {
	case KindBytes:
		if utf8.Valid(v.Bytes) {
			return string(v.Bytes)
		}
		return hex.EncodeToString(v.Bytes)
	default:
		return v.Text
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindBytes {
		return bytes.Equal(v.Bytes, o.Bytes)
	}
	return v.Text == o.Text
}
