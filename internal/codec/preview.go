package codec

import (
	"encoding/hex"
	"strings"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Preview is the ASCII rendering of a binary value.
type Preview struct {
	Text string `json:"text"`
	// Exact is set when every byte is printable ASCII.
	Exact bool `json:"exact"`
}

// ASCIIPreview renders the bytes of a hex2bin or blob_data value as ASCII,
// with '.' in place of bytes outside 0x20-0x7e. ok is false for other types
// and for unreadable values. Text that is not hex returns an error wrapping
// types.ErrValidation.
func ASCIIPreview(tag string, v types.Value) (Preview, bool, error) {
	if token, known := Lookup(tag); !known || token != Hex2Bin || v.IsUnreadable() {
		return Preview{}, false, nil
	}
	data := v.Bytes
	if v.Kind != types.KindBytes {
		canon, err := canonicalHex(v.Text)
		if err != nil {
			return Preview{}, true, err
		}
		data, _ = hex.DecodeString(canon)
	}

	var sb strings.Builder
	p := Preview{Exact: true}
	for _, b := range data {
		if b < 0x20 || b > 0x7e {
			sb.WriteByte('.')
			p.Exact = false
			continue
		}
		sb.WriteByte(b)
	}
	p.Text = sb.String()
	return p, true, nil
}
