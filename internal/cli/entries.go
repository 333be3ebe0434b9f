package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nvsedit/internal/codec"
	"github.com/mesh-intelligence/nvsedit/internal/editor"
	"github.com/mesh-intelligence/nvsedit/internal/store"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var (
		sortField string
		desc      bool
		search    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workspace entries",
		Long: `List prints the entries, filtered by a case-insensitive substring over key,
namespace, type and value, and sorted by one column with the others as
tie-breaks.

Example:
  nvsedit list
  nvsedit list --sort namespace --desc
  nvsedit list --search wifi --json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := store.ParseField(sortField)
			if err != nil {
				return usageError(err)
			}
			q := store.Query{Field: field, Ascending: !desc, Search: search}
			return a.view(func(s *editor.Session) error {
				rows := s.Render(q)
				if a.flags.jsonMode {
					return printJSON(out(cmd), rows)
				}
				printRows(out(cmd), rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", "key", "sort column: key, namespace, type, value")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive filter text")
	return cmd
}

// shownEntry is one entry as printed by show.
type shownEntry struct {
	Namespace string         `json:"namespace"`
	Key       string         `json:"key"`
	Type      string         `json:"type"`
	Value     string         `json:"value"`
	Display   string         `json:"display,omitempty"`
	ASCII     *codec.Preview `json:"ascii,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <namespace> <key>",
		Short: "Show one entry",
		Long: `Show prints an entry with its value in editable form. Binary values
(hex2bin, blob_data) also get an ASCII preview with '.' for bytes that are not
printable.

Example:
  nvsedit show phy cal_data`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, key := args[0], args[1]
			return a.view(func(s *editor.Session) error {
				e, ok := s.Store().Get(key, ns)
				if !ok {
					return fmt.Errorf("show %s:%s: %w", ns, key, types.ErrNotFound)
				}
				in := editor.Input(e)
				shown := shownEntry{Namespace: e.Namespace, Key: e.Key, Type: e.Type, Value: in.Value, Display: e.Display}
				preview, ok, err := codec.ASCIIPreview(e.Type, e.Value)
				if err != nil {
					a.log.Warn("no ascii preview", "entry", e.ID().String(), "err", err)
				} else if ok {
					shown.ASCII = &preview
				}
				if a.flags.jsonMode {
					return printJSON(out(cmd), shown)
				}
				printEntry(out(cmd), shown)
				return nil
			})
		},
	}
}

// entryFlags are the editable fields shared by add and edit.
type entryFlags struct {
	key, namespace, typ, value string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "key", "", "entry key")
	cmd.Flags().StringVar(&f.namespace, "namespace", "", "namespace name")
	cmd.Flags().StringVar(&f.typ, "type", "", "type: "+strings.Join(codec.EditableTypes, ", "))
	cmd.Flags().StringVar(&f.value, "value", "", "value text (hex for hex2bin and blob_data)")
}

// apply overrides the fields of in whose flags were set.
func (f *entryFlags) apply(cmd *cobra.Command, in editor.EntryInput) editor.EntryInput {
	if cmd.Flags().Changed("key") {
		in.Key = f.key
	}
	if cmd.Flags().Changed("namespace") {
		in.Namespace = f.namespace
	}
	if cmd.Flags().Changed("type") {
		in.Type = f.typ
	}
	if cmd.Flags().Changed("value") {
		in.Value = f.value
	}
	return in
}

func newAddCmd(a *app) *cobra.Command {
	var f entryFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry",
		Long: `Add validates and inserts a new entry. The (key, namespace) pair must be new.

Example:
  nvsedit add --namespace wifi --key channel --type u8 --value 6`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := f.apply(cmd, editor.EntryInput{})
			return a.update(true, func(s *editor.Session) error {
				if err := s.Add(in); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Added %s:%s\n", strings.TrimSpace(in.Namespace), strings.TrimSpace(in.Key))
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var f entryFlags
	cmd := &cobra.Command{
		Use:   "edit <namespace> <key>",
		Short: "Change an entry",
		Long: `Edit replaces the fields given by flags and keeps the others. Changing the
key or namespace moves the entry; the new pair must not already exist.

Example:
  nvsedit edit wifi channel --value 11
  nvsedit edit wifi channel --namespace radio`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, key := args[0], args[1]
			return a.update(false, func(s *editor.Session) error {
				e, ok := s.Store().Get(key, ns)
				if !ok {
					return fmt.Errorf("edit %s:%s: %w", ns, key, types.ErrNotFound)
				}
				in := f.apply(cmd, editor.Input(e))
				if err := s.Update(key, ns, in); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Updated %s:%s\n", strings.TrimSpace(in.Namespace), strings.TrimSpace(in.Key))
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <namespace> <key>",
		Short: "Remove an entry",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, key := args[0], args[1]
			return a.update(false, func(s *editor.Session) error {
				if err := s.Remove(key, ns); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Deleted %s:%s\n", ns, key)
				return nil
			})
		},
	}
}

func newNamespacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List registered namespaces and their indices",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(s *editor.Session) error {
				defs := s.Registry().Names()
				if a.flags.jsonMode {
					return printJSON(out(cmd), defs)
				}
				printNamespaces(out(cmd), defs)
				return nil
			})
		},
	}
}

func newDiagnosticsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "Show warnings from the last open or import",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(s *editor.Session) error {
				diags := s.Diagnostics()
				if a.flags.jsonMode {
					if diags == nil {
						diags = []types.Diagnostic{}
					}
					return printJSON(out(cmd), diags)
				}
				printDiagnostics(out(cmd), diags)
				return nil
			})
		},
	}
}
