package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/nvsedit/internal/paths"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "NVSEDIT"

	cfgKeyDataDir       = "data_dir"
	cfgKeyLogLevel      = "log_level"
	cfgKeyPartitionSize = "partition_size"
	cfgKeyFormatVersion = "format_version"
	cfgKeyPython        = "tools.python"
	cfgKeyNVSTool       = "tools.nvs_tool"
	cfgKeyPartitionGen  = "tools.partition_gen"
)

const configHeader = "# nvsedit configuration\n# Environment variables NVSEDIT_<KEY> override these values\n# (for example NVSEDIT_DATA_DIR, NVSEDIT_TOOLS_PYTHON).\n\n"

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeDefaultConfig(paths.ConfigFile(configDir)); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	def := types.DefaultConfig()
	v := viper.New()
	v.SetDefault(cfgKeyDataDir, def.DataDir)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyPartitionSize, def.PartitionSize)
	v.SetDefault(cfgKeyFormatVersion, def.FormatVersion)
	v.SetDefault(cfgKeyPython, def.Tools.Python)
	v.SetDefault(cfgKeyNVSTool, def.Tools.NVSTool)
	v.SetDefault(cfgKeyPartitionGen, def.Tools.PartitionGen)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// writeDefaultConfig creates path with the default configuration if it does
// not exist.
func writeDefaultConfig(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	data, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

func configFromViper(v *viper.Viper) types.Config {
	return types.Config{
		DataDir:       v.GetString(cfgKeyDataDir),
		LogLevel:      v.GetString(cfgKeyLogLevel),
		PartitionSize: v.GetInt64(cfgKeyPartitionSize),
		FormatVersion: v.GetInt(cfgKeyFormatVersion),
		Tools: types.ToolsConfig{
			Python:       v.GetString(cfgKeyPython),
			NVSTool:      v.GetString(cfgKeyNVSTool),
			PartitionGen: v.GetString(cfgKeyPartitionGen),
		},
	}
}
