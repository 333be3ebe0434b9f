package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nvsedit/internal/editor"
)

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <partition.bin>",
		Short: "Load a partition image into the workspace",
		Long: `Open decodes a partition image with nvs_tool.py and replaces the workspace
session with its entries. On failure the previous session is kept.

Example:
  nvsedit open nvs.bin`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(true, func(s *editor.Session) error {
				if err := s.OpenPartition(cmd.Context(), a.decoder, args[0]); err != nil {
					return err
				}
				printLoaded(cmd, s)
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load a namespace-grouped CSV into the workspace",
		Long: `Import reads a CSV with key,type,encoding,value columns and replaces the
workspace session with its entries. Import is not a merge.

Example:
  nvsedit import nvs.csv`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(true, func(s *editor.Session) error {
				if err := s.ImportCSVFile(args[0]); err != nil {
					return err
				}
				printLoaded(cmd, s)
				return nil
			})
		},
	}
}

func printLoaded(cmd *cobra.Command, s *editor.Session) {
	fmt.Fprintf(out(cmd), "Loaded %d entries in %d namespaces from %s (%d warnings)\n",
		s.Store().Len(), len(s.Store().Namespaces()), s.Source(), len(s.Diagnostics()))
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write the workspace entries as CSV",
		Long: `Export writes the entries grouped by namespace in the CSV layout accepted by
nvs_partition_gen. Use "-" to write to standard output.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(s *editor.Session) error {
				if args[0] == "-" {
					_, err := s.ExportCSV(out(cmd))
					return err
				}
				diags, err := s.ExportCSVFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Exported %d entries to %s (%d skipped)\n", s.Store().Len(), args[0], len(diags))
				return nil
			})
		},
	}
}

func newSaveCmd(a *app) *cobra.Command {
	var (
		size    string
		version int
	)
	cmd := &cobra.Command{
		Use:   "save <partition.bin>",
		Short: "Generate a partition image from the workspace",
		Long: `Save exports the entries to a temporary CSV and runs nvs_partition_gen.
The size defaults to the opened partition's size, then partition_size from
config.yaml.

Example:
  nvsedit save nvs_new.bin --size 0x6000`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := editor.SaveOptions{Version: version}
			if size != "" {
				n, err := strconv.ParseInt(size, 0, 64)
				if err != nil {
					return usageError(fmt.Errorf("invalid --size %q", size))
				}
				opts.Size = n
			}
			if opts.Version == 0 {
				opts.Version = a.cfg.FormatVersion
			}
			return a.update(false, func(s *editor.Session) error {
				if opts.Size == 0 && s.PartitionSize() == 0 {
					opts.Size = a.cfg.PartitionSize
				}
				if err := s.SavePartition(cmd.Context(), a.generator, args[0], opts); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Saved %d entries to %s (%#x bytes)\n", s.Store().Len(), args[0], s.PartitionSize())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "partition size in bytes, decimal or 0x hex")
	cmd.Flags().IntVar(&version, "version", 0, "NVS format version (1 or 2)")
	return cmd
}
