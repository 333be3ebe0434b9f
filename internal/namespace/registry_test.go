package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

func TestResolveUnknownFallsBackToPlaceholder(t *testing.T) {
	r := New()
	assert.Equal(t, "ns_7", r.Resolve(7))
	assert.Equal(t, "ns_0", r.Resolve(Reserved))
	assert.Equal(t, Default, r.Resolve(Reserved))
}

func TestIndexOfAllocatesAfterHighest(t *testing.T) {
	r := New()
	assert.Equal(t, 1, r.IndexOf("wifi"))
	assert.Equal(t, 2, r.IndexOf("phy"))
	assert.Equal(t, 1, r.IndexOf("wifi"), "existing names reuse their index")

	r.Define(9, "nvs.net80211")
	assert.Equal(t, 10, r.IndexOf("misc"))
}

func TestIndexOfNeverReturnsReserved(t *testing.T) {
	r := New()
	assert.NotEqual(t, Reserved, r.IndexOf("first"))
}

func TestResolveIndexOfRoundTrip(t *testing.T) {
	r := New()
	r.Define(3, "storage")
	for _, name := range []string{"storage", "wifi", "ns_12", "default", ""} {
		assert.Equal(t, name, r.Resolve(r.IndexOf(name)), "name %q", name)
	}
}

func TestDefine(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		wantOK bool
	}{
		{"data namespace", 4, true},
		{"reserved index ignored", Reserved, false},
		{"negative index ignored", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			assert.Equal(t, tt.wantOK, r.Define(tt.index, "x"))
			_, found := r.Lookup("x")
			assert.Equal(t, tt.wantOK, found)
		})
	}
}

func TestDefineReplacesIndex(t *testing.T) {
	r := New()
	r.Define(1, "old")
	r.Define(1, "new")
	assert.Equal(t, "new", r.Resolve(1))
	_, ok := r.Lookup("old")
	assert.False(t, ok)
}

func TestNamesOrderedAndReset(t *testing.T) {
	r := New()
	r.Define(5, "e")
	r.Define(2, "b")
	r.IndexOf("f")
	require.Equal(t, []types.NamespaceDef{{Index: 2, Name: "b"}, {Index: 5, Name: "e"}, {Index: 6, Name: "f"}}, r.Names())

	cp := r.Clone()
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, cp.Len())
	assert.Equal(t, 1, r.IndexOf("b"), "allocation restarts after reset")
}
