package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nvsedit/pkg/nvsedit"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nvsedit version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(out(cmd), "nvsedit v%s\nmodule: %s\n", nvsedit.Version, nvsedit.ModulePath)
			return nil
		},
	}
}
