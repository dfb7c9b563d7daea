package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

const envPrefix = "TRUSTLENS"

// defaultConfigPath is ~/.trustlens/config.yaml
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".trustlens", "config.yaml"), nil
}

// LoadConfig layers flags over TRUSTLENS_* env over the config file over
// defaults. An explicit path must exist; the default path is optional.
func LoadConfig(path string, flags *pflag.FlagSet) (*model.Config, string, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// defaults go in as YAML so env lookup knows every key
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil, "", fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	used := ""
	if path == "" {
		if p, err := defaultConfigPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				used = p
			}
		}
	} else {
		used = path
	}
	if used != "" {
		v.SetConfigFile(used)
		if err := v.MergeInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", used, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range map[string]string{"database.path": "db", "log.level": "log-level"} {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if flags != nil {
		if f := flags.Lookup("verbose"); f != nil && f.Changed && f.Value.String() == "true" {
			cfg.Log.Level = "debug"
		}
	}
	return cfg, used, nil
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage TrustLens configuration",
	Long: `Manage TrustLens configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (TRUSTLENS_*, e.g. TRUSTLENS_GDELT_MAX_RECORDS)
3. Config file (~/.trustlens/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := LoadConfig(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if used != "" {
			fmt.Fprintf(stderr(cmd), "Configuration file: %s\n\n", used)
		} else {
			fmt.Fprintf(stderr(cmd), "No configuration file found (using defaults)\n\n")
		}

		if cfg.LLM.APIKey != "" {
			cfg.LLM.APIKey = "********"
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := defaultConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if err := writeDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", path)
		return nil
	},
}

// writeDefaultConfig refuses to overwrite an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# TrustLens configuration\n" +
		"# Environment variables override this file: TRUSTLENS_<SECTION>_<KEY>\n" +
		"# API keys are better kept in OPENAI_API_KEY / ANTHROPIC_API_KEY.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
