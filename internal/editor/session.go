// Package editor owns the state of one editing session: the namespace
// registry, the entry store and the diagnostics of the last load.
//
// Loading a partition or importing CSV builds a complete new registry and
// store first and swaps them in only on success, so a failed load leaves the
// previous state untouched. A Session is not safe for concurrent use.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/mesh-intelligence/nvsedit/internal/codec"
	"github.com/mesh-intelligence/nvsedit/internal/csvbridge"
	"github.com/mesh-intelligence/nvsedit/internal/fileio"
	"github.com/mesh-intelligence/nvsedit/internal/ingest"
	"github.com/mesh-intelligence/nvsedit/internal/namespace"
	"github.com/mesh-intelligence/nvsedit/internal/partition"
	"github.com/mesh-intelligence/nvsedit/internal/store"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Session is one editing context.
type Session struct {
	id            string
	source        string
	sourceHash    uint64
	partitionSize int64
	updatedAt     time.Time

	reg   *namespace.Registry
	store *store.Store
	diags []types.Diagnostic

	progress types.ProgressFunc
	log      *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithProgress installs a progress observer.
func WithProgress(p types.ProgressFunc) Option {
	return func(s *Session) { s.progress = p }
}

// WithLogger sets the logger used for load summaries and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New returns an empty session.
func New(opts ...Option) *Session {
	reg := namespace.New()
	s := &Session{
		id:    newSessionID(),
		reg:   reg,
		store: store.New(reg),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// ID returns the session identifier. It changes whenever new content is
// loaded.
func (s *Session) ID() string { return s.id }

// Source returns the path the session content came from.
func (s *Session) Source() string { return s.source }

// SourceHash returns the xxh3 fingerprint of the loaded source bytes.
func (s *Session) SourceHash() uint64 { return s.sourceHash }

// PartitionSize returns the size of the opened partition, or zero.
func (s *Session) PartitionSize() int64 { return s.partitionSize }

// Registry returns the namespace registry.
func (s *Session) Registry() *namespace.Registry { return s.reg }

// Store returns the entry store.
func (s *Session) Store() *store.Store { return s.store }

// Diagnostics returns the warnings of the last load or import.
func (s *Session) Diagnostics() []types.Diagnostic { return s.diags }

// OpenPartition decodes the partition at path and replaces the session
// content with its entries.
func (s *Session) OpenPartition(ctx context.Context, dec partition.Decoder, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read partition: %w", err)
	}
	s.report("decoding " + path)
	tree, err := dec.Decode(ctx, path)
	if err != nil {
		return err
	}
	if err := s.LoadTree(tree, path); err != nil {
		return err
	}
	s.sourceHash = xxh3.Hash(data)
	s.partitionSize = int64(len(data))
	return nil
}

// LoadTree replaces the session content with the entries of a decoded tree.
func (s *Session) LoadTree(tree *ingest.Tree, source string) error {
	res, err := ingest.Ingest(tree, s.progress)
	if err != nil {
		return err
	}
	s.replace(res.Registry, res.Store, res.Diagnostics, source)
	s.partitionSize = 0
	s.log.Info("partition loaded", "source", source, "entries", s.store.Len(), "namespaces", s.reg.Len(), "warnings", len(s.diags))
	return nil
}

// ImportCSV replaces the session content with the entries of a CSV file.
func (s *Session) ImportCSV(r io.Reader, source string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	res, err := csvbridge.Import(bytes.NewReader(data), s.progress)
	if err != nil {
		return fmt.Errorf("import %s: %w", source, err)
	}
	s.replace(res.Registry, res.Store, res.Diagnostics, source)
	s.sourceHash = xxh3.Hash(data)
	s.partitionSize = 0
	s.log.Info("csv imported", "source", source, "entries", s.store.Len(), "namespaces", s.reg.Len(), "warnings", len(s.diags))
	return nil
}

// ImportCSVFile imports the CSV file at path.
func (s *Session) ImportCSVFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return s.ImportCSV(f, path)
}

// Unchanged reports whether path is the session's source and its bytes
// still hash to the loaded content.
func (s *Session) Unchanged(path string) (bool, error) {
	if s.source != path || s.sourceHash == 0 {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return xxh3.Hash(data) == s.sourceHash, nil
}

// ExportCSV writes the entries as namespace-grouped CSV. Returns ErrNoData
// when the session is empty.
func (s *Session) ExportCSV(w io.Writer) ([]types.Diagnostic, error) {
	if s.store.Len() == 0 {
		return nil, types.ErrNoData
	}
	diags, err := csvbridge.Export(w, s.store, s.progress)
	if err != nil {
		return nil, err
	}
	s.logDiagnostics(diags)
	return diags, nil
}

// ExportCSVFile writes the CSV export to path atomically.
func (s *Session) ExportCSVFile(path string) ([]types.Diagnostic, error) {
	if s.store.Len() == 0 {
		return nil, types.ErrNoData
	}
	var diags []types.Diagnostic
	err := fileio.WriteFile(path, func(w io.Writer) error {
		var err error
		diags, err = s.ExportCSV(w)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", path, err)
	}
	return diags, nil
}

// SaveOptions controls partition generation. Zero values select the opened
// partition's size (or the default size) and the default format version.
type SaveOptions struct {
	Size    int64
	Version int
}

// SavePartition writes the entries to a temporary CSV and asks gen to build a
// partition at out.
func (s *Session) SavePartition(ctx context.Context, gen partition.Generator, out string, opts SaveOptions) error {
	if s.store.Len() == 0 {
		return types.ErrNoData
	}
	size := opts.Size
	if size == 0 {
		size = s.partitionSize
	}
	if size == 0 {
		size = types.DefaultPartitionSize
	}
	version := opts.Version
	if version == 0 {
		version = types.DefaultFormatVersion
	}

	tmpDir, err := os.MkdirTemp("", "nvsedit-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	csvPath := filepath.Join(tmpDir, "nvs.csv")
	s.report("generating CSV")
	if _, err := s.ExportCSVFile(csvPath); err != nil {
		return err
	}

	s.report("generating partition " + out)
	req := partition.GenerateRequest{CSVPath: csvPath, OutputPath: out, Size: size, Version: version}
	if err := gen.Generate(ctx, req); err != nil {
		return err
	}
	s.source = out
	s.partitionSize = size
	s.touch()
	s.log.Info("partition saved", "path", out, "size", size, "version", version, "entries", s.store.Len())
	return nil
}

// EntryInput is user-entered entry data, validated before it reaches the
// store.
type EntryInput struct {
	Key       string
	Namespace string
	Type      string
	Value     string
}

// Add validates in and adds it as a new entry.
func (s *Session) Add(in EntryInput) error {
	e, err := s.build(in)
	if err != nil {
		return err
	}
	if err := s.store.Add(e); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Update validates in and applies it to the entry (oldKey, oldNamespace).
func (s *Session) Update(oldKey, oldNamespace string, in EntryInput) error {
	e, err := s.build(in)
	if err != nil {
		return err
	}
	if err := s.store.Update(oldKey, oldNamespace, e); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Remove deletes the entry (key, namespace).
func (s *Session) Remove(key, ns string) error {
	if err := s.store.Remove(key, ns); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Input returns the editable form of an existing entry, with the value in
// the text form its encoding expects.
func Input(e *types.Entry) EntryInput {
	token, ok := codec.Lookup(e.Type)
	if !ok {
		token = codec.Fallback
	}
	return EntryInput{
		Key:       e.Key,
		Namespace: e.Namespace,
		Type:      e.Type,
		Value:     codec.FormatValue(token, e.Value),
	}
}

// Render returns the display rows for q.
func (s *Session) Render(q store.Query) []types.DisplayRow {
	return store.Project(s.store.Render(q))
}

func (s *Session) build(in EntryInput) (*types.Entry, error) {
	key := strings.TrimSpace(in.Key)
	ns := strings.TrimSpace(in.Namespace)
	if key == "" {
		return nil, fmt.Errorf("%w: key must not be empty", types.ErrValidation)
	}
	if ns == "" {
		return nil, fmt.Errorf("%w: namespace must not be empty", types.ErrValidation)
	}
	if _, ok := codec.Lookup(in.Type); !ok {
		return nil, fmt.Errorf("%w: unknown type %q (valid: %s)", types.ErrValidation, in.Type, strings.Join(codec.EditableTypes, ", "))
	}
	raw := in.Value
	if token, _ := codec.Lookup(in.Type); token != codec.String {
		raw = strings.TrimSpace(raw)
	}
	val, err := codec.ParseValue(in.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%s: %w", ns, key, err)
	}
	return &types.Entry{Key: key, Namespace: ns, Type: strings.TrimSpace(in.Type), Value: val}, nil
}

func (s *Session) replace(reg *namespace.Registry, st *store.Store, diags []types.Diagnostic, source string) {
	s.id = newSessionID()
	s.reg = reg
	s.store = st
	s.diags = diags
	s.source = source
	s.sourceHash = 0
	s.touch()
	s.logDiagnostics(diags)
}

func (s *Session) logDiagnostics(diags []types.Diagnostic) {
	for _, d := range diags {
		s.log.Warn(d.Reason, "key", d.Key, "namespace", d.Namespace)
	}
}

func (s *Session) touch() { s.updatedAt = time.Now().UTC() }

func (s *Session) report(status string) {
	if s.progress != nil {
		s.progress(status)
	}
}
