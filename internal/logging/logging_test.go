package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	log := New(&buf, lvl)

	log.Info("hidden")
	log.Warn("unknown type, encoding as hex2bin", "type", "float")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "unknown type, encoding as hex2bin")
	assert.Contains(t, out, "type=float")
	assert.NotContains(t, out, "\x1b[", "no colour when not a terminal")

	lvl.Set(slog.LevelDebug)
	log.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNewDropsEmptyAttrs(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo).Info("entry skipped", "key", "ssid", "namespace", "")
	out := buf.String()
	assert.Contains(t, out, "key=ssid")
	assert.NotContains(t, out, "namespace=")
}
