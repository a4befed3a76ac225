package cmd

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/mcsstheme/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing mcsstheme configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  mcsstheme config dump > .mcsstheme.yaml

Configuration can be set via:
  - Config file (.mcsstheme.yaml in $HOME, the working directory or /etc/mcsstheme)
  - Environment variables (MCSSTHEME_SERVER_PORT, MCSSTHEME_THEME_DEFAULT, etc.)
  - Command-line flags (for some options)

Environment variables use the MCSSTHEME_ prefix and underscores for nesting.
Example: theme.color_format -> MCSSTHEME_THEME_COLOR_FORMAT`,
	RunE: runConfigDump,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after applying the config file, environment and flags. The database DSN is redacted.`,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
	configCmd.AddCommand(configShowCmd)
}

// toMap converts a struct to a map keyed by mapstructure tags, formatting
// durations and sizes for human readability. Fields tagged masq:"secret"
// are redacted.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		if fieldType.Tag.Get("masq") == "secret" {
			result[key] = "[REDACTED]"
			continue
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = v.String()
		case config.ByteSize:
			result[key] = v.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func writeConfigYAML(w io.Writer, cfg *config.Config) error {
	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = w.Write(yamlData)
	return err
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# mcsstheme Configuration File")
	fmt.Fprintln(out, "# =============================")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# All values shown below are defaults.")
	fmt.Fprintln(out, "# Duration format: 30s, 5m, 1h")
	fmt.Fprintln(out, "# Size format: 100KiB, 1MB")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# Environment variable overrides:")
	fmt.Fprintln(out, "#   MCSSTHEME_THEME_DEFAULT, MCSSTHEME_THEME_DATA_DIR")
	fmt.Fprintln(out, "#   MCSSTHEME_SERVER_HOST, MCSSTHEME_SERVER_PORT")
	fmt.Fprintln(out, "#   MCSSTHEME_DATABASE_DRIVER, MCSSTHEME_DATABASE_DSN")
	fmt.Fprintln(out, "#   MCSSTHEME_LOGGING_LEVEL, MCSSTHEME_LOGGING_FORMAT")
	fmt.Fprintln(out, "#   etc.")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "")

	return writeConfigYAML(out, cfg)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writeConfigYAML(cmd.OutOrStdout(), cfg)
}
