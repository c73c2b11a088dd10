package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/destenson/dsvision/internal/config"
	"github.com/destenson/dsvision/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing dsvision configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  dsvision config dump > config.yaml

Configuration can be set via:
  - Config file (dsvision.yaml, /etc/dsvision/dsvision.yaml, $HOME/.dsvision/dsvision.yaml)
  - Environment variables (DSVISION_RESOURCES_MAX_CPU_PERCENT, FORCE_BACKEND, etc.)
  - Command-line flags (for some options)`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and byte sizes
// for human readability.
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

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(fv)
		case config.ByteSize:
			result[key] = fv.String()
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

func runConfigDump(_ *cobra.Command, _ []string) error {
	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading default config: %w", err)
	}

	cfgMap := toMap(&cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	header := []string{
		"# dsvision Configuration File",
		"# ============================",
		"#",
		"# All values shown below are defaults.",
		"# Duration format: 30s, 5m, 1h",
		"# Size format: 5MB, 1GB",
		"#",
		"# Environment variable overrides use the DSVISION_ prefix with",
		"# underscores for nesting, e.g. DSVISION_RESOURCES_MAX_CPU_PERCENT.",
		"# FORCE_BACKEND is bound without the prefix per the platform probe.",
		"#",
		"",
	}
	fmt.Println(strings.Join(header, "\n"))
	fmt.Print(string(yamlData))

	return nil
}
