package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// erasedFill marks unused flash at the tail of the last blob chunk.
var erasedFill = []byte{0xff, 0xff, 0xff, 0xff}

// Reconstructed is a value reassembled from chunk fragments.
type Reconstructed struct {
	Value types.Value
	// Display is a best-effort rendering for listing; empty means use
	// Value.String().
	Display string
}

// Reconstruct concatenates the base64 fragments in arrival order and turns
// the bytes into a value for tag (string or blob_data).
//
// Any failure yields the Unreadable sentinel together with the error, so the
// caller can record it and continue.
func Reconstruct(tag string, fragments []string) (Reconstructed, error) {
	raw, err := concatFragments(fragments)
	if err != nil {
		return Reconstructed{Value: types.UnreadableValue()}, err
	}
	switch tag {
	case TagString:
		s := strings.ToValidUTF8(string(raw), "\uFFFD")
		return Reconstructed{Value: types.TextValue(strings.TrimRight(s, "\x00"))}, nil
	case TagBlobData:
		return reconstructBlob(raw), nil
	default:
		return Reconstructed{Value: types.UnreadableValue()}, fmt.Errorf("cannot reconstruct type %q", tag)
	}
}

func reconstructBlob(raw []byte) Reconstructed {
	if utf8.Valid(raw) {
		return Reconstructed{Value: types.BytesValue(raw), Display: string(raw)}
	}
	full := hex.EncodeToString(raw)
	r := Reconstructed{Value: types.TextValue(full), Display: full}
	// Display only: the canonical value keeps every byte.
	if i := bytes.Index(raw, erasedFill); i > 0 && utf8.Valid(raw[:i]) {
		r.Display = string(raw[:i])
	}
	return r
}

func concatFragments(fragments []string) ([]byte, error) {
	var buf bytes.Buffer
	for i, frag := range fragments {
		b, err := decodeFragment(frag)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// decodeFragment decodes a base64 token whose padding may be missing or
// excessive.
func decodeFragment(frag string) ([]byte, error) {
	s := strings.TrimRight(strings.TrimSpace(frag), "=")
	if s == "" {
		return nil, nil
	}
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}
	return base64.StdEncoding.DecodeString(s)
}
