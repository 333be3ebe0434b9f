// Package partition adapts the ESP-IDF NVS tools that decode partition
// images and generate them from CSV. Both run as external processes.
package partition

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/nvsedit/internal/ingest"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Decoder reads a partition image into a decoded page/entry tree.
type Decoder interface {
	Decode(ctx context.Context, path string) (*ingest.Tree, error)
}

// GenerateRequest describes one partition generation.
type GenerateRequest struct {
	CSVPath    string
	OutputPath string
	Size       int64
	Version    int
}

// Generator builds a partition image of exactly Size bytes from CSV.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) error
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. A failing command's stderr is
// included in the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// ToolDecoder runs nvs_tool.py with JSON output.
type ToolDecoder struct {
	Python string
	Script string
	Run    Runner
}

// NewToolDecoder returns a decoder for the configured tools.
func NewToolDecoder(cfg types.ToolsConfig) *ToolDecoder {
	return &ToolDecoder{Python: cfg.Python, Script: cfg.NVSTool, Run: ExecRunner}
}

// Decode implements Decoder. Failures wrap types.ErrStructural unless ctx
// was cancelled, in which case ctx.Err() is returned wrapped.
func (d *ToolDecoder) Decode(ctx context.Context, path string) (*ingest.Tree, error) {
	out, err := d.Run(ctx, d.Python, d.Script, "--format", "json", "--dump", "all", path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("decode %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("%w: decode %s: %v", types.ErrStructural, path, err)
	}
	return ingest.ParseTree(out)
}

// ToolGenerator runs the nvs_partition_gen module.
type ToolGenerator struct {
	Python string
	Module string
	Run    Runner
}

// NewToolGenerator returns a generator for the configured tools.
func NewToolGenerator(cfg types.ToolsConfig) *ToolGenerator {
	return &ToolGenerator{Python: cfg.Python, Module: cfg.PartitionGen, Run: ExecRunner}
}

// Generate implements Generator. Failures wrap types.ErrGenerate.
func (g *ToolGenerator) Generate(ctx context.Context, req GenerateRequest) error {
	if err := types.ValidatePartitionSize(req.Size); err != nil {
		return fmt.Errorf("%w: %v", types.ErrGenerate, err)
	}
	args := []string{
		"-m", g.Module, "generate",
		req.CSVPath, req.OutputPath, "0x" + strconv.FormatInt(req.Size, 16),
		"--version", strconv.Itoa(req.Version),
	}
	if _, err := g.Run(ctx, g.Python, args...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("generate %s: %w", req.OutputPath, ctx.Err())
		}
		return fmt.Errorf("%w: %v", types.ErrGenerate, err)
	}
	return nil
}
