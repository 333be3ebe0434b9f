// Package codec normalizes NVS type tags to CSV encoding tokens, converts
// values between text and their tagged representation, and reassembles
// string and blob values from partition chunk fragments.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Encoding tokens understood by the partition generator.
const (
	U8      = "u8"
	I8      = "i8"
	U16     = "u16"
	I16     = "i16"
	U32     = "u32"
	I32     = "i32"
	U64     = "u64"
	I64     = "i64"
	String  = "string"
	Hex2Bin = "hex2bin"
	Binary  = "binary"
	Base64  = "base64"
)

// Type tags emitted by the partition decoder that need special handling.
const (
	TagString    = "string"
	TagBlobData  = "blob_data"
	TagBlobIndex = "blob_index"
)

// Fallback is the token used for unrecognized type tags.
const Fallback = Hex2Bin

// encodings maps every accepted type spelling to its encoding token.
var encodings = map[string]string{
	"u8": U8, "uint8_t": U8,
	"i8": I8, "int8_t": I8,
	"u16": U16, "uint16_t": U16,
	"i16": I16, "int16_t": I16,
	"u32": U32, "uint32_t": U32,
	"i32": I32, "int32_t": I32,
	"u64": U64, "uint64_t": U64,
	"i64": I64, "int64_t": I64,
	"string":    String,
	"blob":      Hex2Bin,
	"blob_data": Hex2Bin,
	"hex2bin":   Hex2Bin,
	"binary":    Binary,
	"base64":    Base64,
}

// integerBits holds the width and signedness of the integer tokens.
var integerBits = map[string]struct {
	bits   int
	signed bool
}{
	U8: {8, false}, I8: {8, true},
	U16: {16, false}, I16: {16, true},
	U32: {32, false}, I32: {32, true},
	U64: {64, false}, I64: {64, true},
}

// EditableTypes lists the type tags offered when adding or editing entries.
var EditableTypes = []string{
	U8, I8, U16, I16, U32, I32, U64, I64,
	String, TagBlobData, Hex2Bin, Base64, Binary,
}

// Lookup returns the encoding token for tag. Matching ignores case and
// surrounding spaces.
func Lookup(tag string) (string, bool) {
	tok, ok := encodings[strings.ToLower(strings.TrimSpace(tag))]
	return tok, ok
}

// Normalize returns the encoding token for tag. Unrecognized tags map to
// hex2bin and a warning is logged.
func Normalize(tag string) string {
	if tok, ok := Lookup(tag); ok {
		return tok
	}
	slog.Warn("unknown type, encoding as hex2bin", "type", tag)
	return Fallback
}

// IsInteger reports whether token is one of the sized integer tokens.
func IsInteger(token string) bool {
	_, ok := integerBits[token]
	return ok
}

// Validate checks raw user input for tag and returns its canonical text:
// hex is left-padded to even length, integers are reformatted in decimal.
// Errors wrap types.ErrValidation.
func Validate(tag, raw string) (string, error) {
	return validate(Normalize(tag), raw)
}

// ParseValue converts text for tag into a tagged value. Integer tokens give
// an Integer value and hex2bin gives Bytes. On error the returned value holds
// raw as text so callers may keep it.
func ParseValue(tag, raw string) (types.Value, error) {
	token := Normalize(tag)
	canon, err := validate(token, raw)
	if err != nil {
		return types.TextValue(raw), err
	}
	switch {
	case IsInteger(token):
		return types.IntegerValue(canon), nil
	case token == Hex2Bin:
		b, err := hex.DecodeString(canon)
		if err != nil {
			return types.TextValue(raw), fmt.Errorf("%w: %v", types.ErrValidation, err)
		}
		return types.BytesValue(b), nil
	default:
		return types.TextValue(canon), nil
	}
}

func validate(token, raw string) (string, error) {
	switch {
	case IsInteger(token):
		return canonicalInteger(token, raw)
	case token == Hex2Bin:
		return canonicalHex(raw)
	case token == Base64:
		if _, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw)); err != nil {
			return "", fmt.Errorf("%w: base64 requires base64 data: %v", types.ErrValidation, err)
		}
		return strings.TrimSpace(raw), nil
	default:
		return raw, nil
	}
}

// FormatValue renders v as the CSV value column for token. hex2bin output is
// uppercase with an even number of digits.
func FormatValue(token string, v types.Value) string {
	if token != Hex2Bin {
		return v.String()
	}
	if v.Kind == types.KindBytes {
		return strings.ToUpper(hex.EncodeToString(v.Bytes))
	}
	s := strings.ToUpper(v.Text)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return s
}

func canonicalInteger(token, raw string) (string, error) {
	width := integerBits[token]
	s := strings.TrimSpace(raw)
	if width.signed {
		n, err := strconv.ParseInt(s, 10, width.bits)
		if err != nil {
			return "", fmt.Errorf("%w: %s requires an integer in range: %q", types.ErrValidation, token, raw)
		}
		return strconv.FormatInt(n, 10), nil
	}
	n, err := strconv.ParseUint(s, 10, width.bits)
	if err != nil {
		return "", fmt.Errorf("%w: %s requires an integer in range: %q", types.ErrValidation, token, raw)
	}
	return strconv.FormatUint(n, 10), nil
}

func canonicalHex(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: hex2bin requires a hexadecimal string: %q", types.ErrValidation, raw)
	}
	return s, nil
}
