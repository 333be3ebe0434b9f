// Package cli implements the nvsedit command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/nvsedit/internal/logging"
	"github.com/mesh-intelligence/nvsedit/internal/partition"
	"github.com/mesh-intelligence/nvsedit/internal/paths"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks command-line mistakes: bad arguments, flags or sort fields.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags

	configDir string
	dataDir   string
	v         *viper.Viper
	cfg       types.Config

	level *slog.LevelVar
	log   *slog.Logger

	// decoder and generator default to the ESP-IDF tools named in config.
	decoder   partition.Decoder
	generator partition.Generator
}

// NewRootCmd creates the top-level "nvsedit" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "nvsedit",
		Short: "Edit ESP-IDF NVS partitions",
		Long: "nvsedit opens NVS partition images or namespace-grouped CSV files into a\n" +
			"persistent workspace, edits entries, and writes CSV or new partition images.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory holding the workspace (default: platform data dir)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newOpenCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newSaveCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newNamespacesCmd(a),
		newDiagnosticsCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "nvsedit:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage), types.IsUserError(err):
		return exitUserError
	default:
		return exitSysError
	}
}

func usageError(err error) error {
	return fmt.Errorf("%w: %w", errUsage, err)
}

// setup resolves directories, loads config.yaml and installs the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if err := v.BindPFlag(cfgKeyLogLevel, cmd.Flags().Lookup("log-level")); err != nil {
		return fmt.Errorf("bind log level: %w", err)
	}
	cfg := configFromViper(v)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	a.configDir = configDir
	a.dataDir = dataDir
	a.v = v
	a.cfg = cfg

	lvl, _ := types.ParseLogLevel(cfg.LogLevel)
	a.level = new(slog.LevelVar)
	a.level.Set(lvl)
	a.log = logging.New(cmd.ErrOrStderr(), a.level)
	slog.SetDefault(a.log)

	if a.decoder == nil {
		a.decoder = partition.NewToolDecoder(cfg.Tools)
	}
	if a.generator == nil {
		a.generator = partition.NewToolGenerator(cfg.Tools)
	}
	a.log.Debug("configured", "config_dir", configDir, "data_dir", dataDir)
	return nil
}

// exactArgs is cobra.ExactArgs with errors marked as usage errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// out returns the command's standard output.
func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
