package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nvsedit/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the configuration and workspace",
		Long:  "Create the configuration directory with a default config.yaml and the\nworkspace database in the data directory.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()
			if reset {
				if err := ws.Clear(); err != nil {
					return fmt.Errorf("reset workspace: %w", err)
				}
			}
			fmt.Fprintf(out(cmd), "config: %s\nworkspace: %s\n", paths.ConfigFile(a.configDir), ws.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "discard the stored session")
	return cmd
}
