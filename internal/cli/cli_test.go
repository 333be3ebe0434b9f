package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nvsedit/internal/editor"
	"github.com/mesh-intelligence/nvsedit/internal/ingest"
	"github.com/mesh-intelligence/nvsedit/internal/partition"
	"github.com/mesh-intelligence/nvsedit/internal/sqlite"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

const sampleCSV = "key,type,encoding,value\n" +
	"storage,namespace,,\n" +
	"boot,data,u8,3\n" +
	"cfg,data,hex2bin,0A0B\n"

const partitionJSON = `{"pages": [{"entries": [
  {"state": "Written", "key": "wifi", "metadata": {"namespace": 0, "type": "uint8_t"}, "data": {"value": 1}},
  {"state": "Written", "key": "ssid", "metadata": {"namespace": 1, "type": "string"}, "children": [{"raw": "SG9tZUFQAA=="}]},
  {"state": "Written", "key": "blob", "metadata": {"namespace": 1, "type": "blob_index"}, "data": {"size": 3}}
]}]}`

type fakeDecoder struct{}

func (fakeDecoder) Decode(ctx context.Context, path string) (*ingest.Tree, error) {
	return ingest.ParseTree([]byte(partitionJSON))
}

type fakeGenerator struct {
	req partition.GenerateRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req partition.GenerateRequest) error {
	g.req = req
	return os.WriteFile(req.OutputPath, make([]byte, req.Size), 0o644)
}

// env is one isolated config/data directory pair.
type env struct {
	configDir string
	dataDir   string
	gen       *fakeGenerator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		configDir: filepath.Join(t.TempDir(), "config"),
		dataDir:   filepath.Join(t.TempDir(), "data"),
		gen:       &fakeGenerator{},
	}
}

// run executes one nvsedit invocation and returns its standard output.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{decoder: fakeDecoder{}, generator: e.gen}
	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "nvsedit %v", args)
	return out
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "nvsedit v")
	assert.Contains(t, out, "github.com/mesh-intelligence/nvsedit")
}

func TestInitCreatesConfigAndWorkspace(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")

	cfg, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "partition_size: 20480")
	assert.Contains(t, string(cfg), "nvs_tool: nvs_tool.py")
	assert.FileExists(t, filepath.Join(e.dataDir, sqlite.DBFile))
	assert.Contains(t, out, filepath.Join(e.dataDir, sqlite.DBFile))
}

func TestImportListExportRoundTrip(t *testing.T) {
	e := newEnv(t)
	csvPath := writeTemp(t, "in.csv", []byte(sampleCSV))

	out := e.mustRun(t, "import", csvPath)
	assert.Contains(t, out, "Loaded 2 entries in 1 namespaces")

	out = e.mustRun(t, "list")
	assert.Regexp(t, regexp.MustCompile(`storage\s+boot\s+u8\s+3`), out)
	assert.Contains(t, out, "Total: 2 entries")

	out = e.mustRun(t, "list", "--json", "--search", "BOOT")
	var rows []types.DisplayRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []types.DisplayRow{{Key: "boot", Namespace: "storage", Type: "u8", Value: "3"}}, rows)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	e.mustRun(t, "export", outPath)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))

	out = e.mustRun(t, "export", "-")
	assert.Equal(t, sampleCSV, out)
}

func TestOpenPartition(t *testing.T) {
	e := newEnv(t)
	bin := writeTemp(t, "nvs.bin", make([]byte, 0x6000))

	out := e.mustRun(t, "open", bin)
	assert.Contains(t, out, "Loaded 1 entries in 1 namespaces")

	out = e.mustRun(t, "namespaces")
	assert.Regexp(t, regexp.MustCompile(`1\s+wifi`), out)

	out = e.mustRun(t, "diagnostics")
	assert.Contains(t, out, "wifi:blob: blob_index skipped")

	out = e.mustRun(t, "diagnostics", "--json")
	var diags []types.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(out), &diags))
	assert.Len(t, diags, 1)

	save := filepath.Join(t.TempDir(), "new.bin")
	e.mustRun(t, "save", save)
	assert.Equal(t, int64(0x6000), e.gen.req.Size, "defaults to the opened partition size")
	assert.Equal(t, 2, e.gen.req.Version)
}

func TestShowEntry(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "import", writeTemp(t, "in.csv", []byte(sampleCSV)))
	e.mustRun(t, "add", "--namespace", "storage", "--key", "greet", "--type", "hex2bin", "--value", "48656c6c6f")

	out := e.mustRun(t, "show", "storage", "greet")
	assert.Regexp(t, regexp.MustCompile(`Value:\s+48656C6C6F`), out)
	assert.Regexp(t, regexp.MustCompile(`ASCII:\s+Hello`), out)

	out = e.mustRun(t, "show", "storage", "cfg")
	assert.Regexp(t, regexp.MustCompile(`ASCII \(partial\):\s+\.\.`), out)

	out = e.mustRun(t, "show", "storage", "boot", "--json")
	var shown shownEntry
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, shownEntry{Namespace: "storage", Key: "boot", Type: "u8", Value: "3"}, shown)

	_, err := e.run(t, "show", "storage", "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddEditDelete(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "add", "--namespace", "net", "--key", "port", "--type", "u16", "--value", "8080")

	_, err := e.run(t, "add", "--namespace", "net", "--key", "port", "--type", "u16", "--value", "1")
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "add", "--namespace", "net", "--key", "mask", "--type", "u8", "--value", "300")
	assert.ErrorIs(t, err, types.ErrValidation)

	e.mustRun(t, "edit", "net", "port", "--value", "9090", "--namespace", "http")
	out := e.mustRun(t, "list", "--json")
	var rows []types.DisplayRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []types.DisplayRow{{Key: "port", Namespace: "http", Type: "u16", Value: "9090"}}, rows)

	_, err = e.run(t, "edit", "net", "port", "--value", "1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	e.mustRun(t, "delete", "http", "port")
	_, err = e.run(t, "delete", "http", "port")
	assert.ErrorIs(t, err, types.ErrNotFound)

	out = e.mustRun(t, "list")
	assert.Contains(t, out, "No entries found.")
}

func TestFailedImportKeepsWorkspace(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "import", writeTemp(t, "in.csv", []byte(sampleCSV)))

	_, err := e.run(t, "import", writeTemp(t, "bad.csv", []byte("key,value\nx,1\n")))
	assert.ErrorIs(t, err, types.ErrImportFormat)
	assert.Equal(t, exitUserError, exitCode(err))

	out := e.mustRun(t, "list")
	assert.Contains(t, out, "Total: 2 entries")
}

func TestCommandsNeedSession(t *testing.T) {
	e := newEnv(t)
	for _, args := range [][]string{
		{"list"},
		{"export", "-"},
		{"save", "x.bin"},
		{"delete", "ns", "k"},
	} {
		_, err := e.run(t, args...)
		assert.ErrorIs(t, err, types.ErrNoSession, "%v", args)
	}
}

func TestSaveUsesConfiguredDefaults(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("partition_size: 12288\nformat_version: 1\n"), 0o644))

	e.mustRun(t, "import", writeTemp(t, "in.csv", []byte(sampleCSV)))
	e.mustRun(t, "save", filepath.Join(t.TempDir(), "a.bin"))
	assert.Equal(t, int64(0x3000), e.gen.req.Size)
	assert.Equal(t, 1, e.gen.req.Version)

	e.mustRun(t, "save", filepath.Join(t.TempDir(), "b.bin"), "--size", "0x4000", "--version", "2")
	assert.Equal(t, int64(0x4000), e.gen.req.Size)
	assert.Equal(t, 2, e.gen.req.Version)

	_, err := e.run(t, "save", "c.bin", "--size", "big")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestConfigFromEnvironment(t *testing.T) {
	e := newEnv(t)
	t.Setenv("NVSEDIT_LOG_LEVEL", "loud")
	_, err := e.run(t, "version")
	assert.ErrorIs(t, err, types.ErrLogLevel)
	assert.Equal(t, exitUserError, exitCode(err))

	t.Setenv("NVSEDIT_LOG_LEVEL", "debug")
	e.mustRun(t, "version")
}

func TestExitCode(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "list", "--sort", "colour")
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "list", "--no-such-flag")
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "open")
	assert.Equal(t, exitUserError, exitCode(err))

	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitSysError, exitCode(errors.New("disk full")))
	assert.Equal(t, exitSysError, exitCode(types.ErrGenerate))
}

func TestSyncCSVSkipsUnchangedContent(t *testing.T) {
	a := &app{dataDir: t.TempDir(), log: discardLogger()}
	path := writeTemp(t, "watched.csv", []byte(sampleCSV))

	var loads int
	count := func(*editor.Session) { loads++ }

	imported, err := a.syncCSV(path, count)
	require.NoError(t, err)
	assert.True(t, imported)

	ws, err := sqlite.Open(a.dataDir)
	require.NoError(t, err)
	first, err := ws.Load()
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	// Rewriting identical bytes leaves the stored session alone.
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	imported, err = a.syncCSV(path, count)
	require.NoError(t, err)
	assert.False(t, imported)

	ws, err = sqlite.Open(a.dataDir)
	require.NoError(t, err)
	same, err := ws.Load()
	require.NoError(t, err)
	require.NoError(t, ws.Close())
	assert.Equal(t, first.SessionID, same.SessionID)

	require.NoError(t, os.WriteFile(path, []byte(sampleCSV+"extra,data,u8,1\n"), 0o644))
	imported, err = a.syncCSV(path, count)
	require.NoError(t, err)
	assert.True(t, imported)
	assert.Equal(t, 2, loads)

	ws, err = sqlite.Open(a.dataDir)
	require.NoError(t, err)
	defer ws.Close()
	changed, err := ws.Load()
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, changed.SessionID)
	assert.Len(t, changed.Entries, 3)
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, discardLogger(), func() error {
			changed <- struct{}{}
			return nil
		})
	}()

	// Keep writing until the watcher is registered and reports a change.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(4 * watchSettle)
	defer tick.Stop()
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
