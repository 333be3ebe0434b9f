package csvbridge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nvsedit/internal/codec"
	"github.com/mesh-intelligence/nvsedit/internal/namespace"
	"github.com/mesh-intelligence/nvsedit/internal/store"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

func newStore(t *testing.T, entries ...*types.Entry) *store.Store {
	t.Helper()
	s := store.New(namespace.New())
	for _, e := range entries {
		require.NoError(t, s.Add(e))
	}
	return s
}

func export(t *testing.T, s *store.Store) (string, []types.Diagnostic) {
	t.Helper()
	var buf bytes.Buffer
	diags, err := Export(&buf, s, nil)
	require.NoError(t, err)
	return buf.String(), diags
}

func TestExportSkipsNamespaceRowForPlaceholder(t *testing.T) {
	s := newStore(t,
		&types.Entry{Key: "a", Namespace: "ns_0", Type: "u8", Value: types.IntegerValue("1")},
		&types.Entry{Key: "b", Namespace: "wifi", Type: "string", Value: types.TextValue("x")},
	)
	out, diags := export(t, s)
	assert.Empty(t, diags)
	assert.Equal(t, "key,type,encoding,value\n"+
		"a,data,u8,1\n"+
		"wifi,namespace,,\n"+
		"b,data,string,x\n", out)
}

func TestExportWritesPlaceholderGroupFirst(t *testing.T) {
	s := newStore(t,
		&types.Entry{Key: "b", Namespace: "wifi", Type: "string", Value: types.TextValue("x")},
		&types.Entry{Key: "a", Namespace: "ns_0", Type: "u8", Value: types.IntegerValue("1")},
	)
	out, _ := export(t, s)
	assert.Equal(t, "key,type,encoding,value\n"+
		"a,data,u8,1\n"+
		"wifi,namespace,,\n"+
		"b,data,string,x\n", out)

	res, err := Import(strings.NewReader(out), nil)
	require.NoError(t, err)
	_, ok := res.Store.Get("a", "wifi")
	assert.False(t, ok, "placeholder entry must not join the wifi namespace")
	_, ok = res.Store.Get("a", DefaultNamespace)
	assert.True(t, ok)
	_, ok = res.Store.Get("b", "wifi")
	assert.True(t, ok)
}

func TestExportGroupsNamespacesContiguously(t *testing.T) {
	s := newStore(t,
		&types.Entry{Key: "ssid", Namespace: "wifi", Type: "string", Value: types.TextValue("ap")},
		&types.Entry{Key: "cal", Namespace: "phy", Type: "blob_data", Value: types.BytesValue([]byte{0xab, 0x01})},
		&types.Entry{Key: "chan", Namespace: "wifi", Type: "uint8_t", Value: types.IntegerValue("6")},
		&types.Entry{Key: "odd", Namespace: "phy", Type: "hex2bin", Value: types.TextValue("fff")},
	)
	out, _ := export(t, s)
	assert.Equal(t, "key,type,encoding,value\n"+
		"wifi,namespace,,\n"+
		"ssid,data,string,ap\n"+
		"chan,data,u8,6\n"+
		"phy,namespace,,\n"+
		"cal,data,hex2bin,AB01\n"+
		"odd,data,hex2bin,0FFF\n", out)
}

func TestExportQuotesFields(t *testing.T) {
	s := newStore(t, &types.Entry{Key: "k,1", Namespace: "ns", Type: "string", Value: types.TextValue(`say "hi"`)})
	out, _ := export(t, s)
	assert.Contains(t, out, `"k,1",data,string,"say ""hi"""`)
}

func TestExportUnknownTypeAndUnreadable(t *testing.T) {
	logs := captureLogs(t)
	s := newStore(t,
		&types.Entry{Key: "weird", Namespace: "ns", Type: "float", Value: types.TextValue("abc")},
		&types.Entry{Key: "bad", Namespace: "ns", Type: "blob_data", Value: types.UnreadableValue()},
	)
	out, diags := export(t, s)
	assert.Contains(t, out, "weird,data,hex2bin,0ABC\n")
	assert.NotContains(t, out, "bad,")
	require.Len(t, diags, 2)
	assert.Equal(t, "weird", diags[0].Key)
	assert.Equal(t, "bad", diags[1].Key)
	assert.Contains(t, logs.String(), "float")
}

func TestExportReportsProgress(t *testing.T) {
	s := newStore(t,
		&types.Entry{Key: "a", Namespace: "ns", Type: "u8", Value: types.IntegerValue("1")},
		&types.Entry{Key: "b", Namespace: "ns", Type: "u8", Value: types.IntegerValue("2")},
	)
	var seen []string
	_, err := Export(&bytes.Buffer{}, s, func(status string) { seen = append(seen, status) })
	require.NoError(t, err)
	assert.Equal(t, []string{"writing ns:a", "writing ns:b"}, seen)
}

func TestImport(t *testing.T) {
	in := "key,type,encoding,value\n" +
		"early,data,u8,4\n" +
		"wifi,namespace,,\n" +
		"ssid,data,string,HomeAP\n" +
		"phy,NAMESPACE,,\n" +
		"cal,data,hex2bin,0A0B\n" +
		"wifi,namespace,,\n" +
		"chan,data,u8,6\n"
	res, err := Import(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)

	reg := res.Registry
	assert.Equal(t, []types.NamespaceDef{{Index: 1, Name: "default"}, {Index: 2, Name: "wifi"}, {Index: 3, Name: "phy"}}, reg.Names())

	all := res.Store.All()
	require.Len(t, all, 4)
	assert.Equal(t, "default", all[0].Namespace)
	assert.Equal(t, 1, all[0].NamespaceIndex)
	assert.Equal(t, types.IntegerValue("4"), all[0].Value)
	assert.Equal(t, "u8", all[0].Type)

	cal, ok := res.Store.Get("cal", "phy")
	require.True(t, ok)
	assert.Equal(t, []byte{0x0a, 0x0b}, cal.Value.Bytes)
	assert.Equal(t, 3, cal.NamespaceIndex)

	chanEntry, ok := res.Store.Get("chan", "wifi")
	require.True(t, ok)
	assert.Equal(t, 2, chanEntry.NamespaceIndex, "repeated namespace rows reuse the index")
}

func TestImportHeaderColumnsAnyOrder(t *testing.T) {
	in := "value,encoding,extra,type,key\nHomeAP,string,x,data,ssid\n"
	res, err := Import(strings.NewReader(in), nil)
	require.NoError(t, err)
	e, ok := res.Store.Get("ssid", "default")
	require.True(t, ok)
	assert.Equal(t, "HomeAP", e.Value.Text)
}

func TestImportMissingColumns(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing value", "key,type,encoding\nns,namespace,\n"},
		{"missing all", "a,b\n1,2\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Import(strings.NewReader(tt.in), nil)
			assert.ErrorIs(t, err, types.ErrImportFormat)
			assert.Nil(t, res)
		})
	}
}

func TestImportDiagnostics(t *testing.T) {
	in := "key,type,encoding,value\n" +
		"ns,namespace,,\n" +
		"n,data,u8,300\n" +
		"n,data,u8,1\n" +
		",data,u8,1\n"
	res, err := Import(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Store.Len())
	e, _ := res.Store.Get("n", "ns")
	assert.Equal(t, types.TextValue("300"), e.Value, "invalid integers are kept as text")
	require.Len(t, res.Diagnostics, 3)
	assert.Contains(t, res.Diagnostics[1].Reason, "row skipped")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newStore(t,
		&types.Entry{Key: "boot", Namespace: "ns_0", Type: "uint8_t", Value: types.IntegerValue("1")},
		&types.Entry{Key: "ssid", Namespace: "wifi", Type: "string", Value: types.TextValue("Home, AP")},
		&types.Entry{Key: "cal", Namespace: "phy", Type: "blob_data", Value: types.BytesValue([]byte{0, 1, 0xff})},
		&types.Entry{Key: "hex", Namespace: "phy", Type: "blob_data", Value: types.TextValue("abc")},
		&types.Entry{Key: "txt", Namespace: "phy", Type: "blob_data", Value: types.BytesValue([]byte("hello"))},
		&types.Entry{Key: "neg", Namespace: "wifi", Type: "int32_t", Value: types.IntegerValue("-7")},
		&types.Entry{Key: "cert", Namespace: "tls", Type: "base64", Value: types.TextValue("aGVsbG8=")},
	)
	out, _ := export(t, src)
	res, err := Import(strings.NewReader(out), nil)
	require.NoError(t, err)

	type tuple struct{ key, ns, token, value string }
	canon := func(s *store.Store, renameDefault bool) []tuple {
		var out []tuple
		for _, e := range s.All() {
			ns := e.Namespace
			if renameDefault && ns == namespace.Default {
				ns = DefaultNamespace
			}
			tok := codec.Normalize(e.Type)
			out = append(out, tuple{e.Key, ns, tok, codec.FormatValue(tok, e.Value)})
		}
		return out
	}
	assert.ElementsMatch(t, canon(src, true), canon(res.Store, false))
}
