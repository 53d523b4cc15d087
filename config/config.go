package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings carries the resolved configuration for a run. Zero values fall back to
// the defaults in defaults.go.
type Settings struct {
	DataDir      string            `mapstructure:"data_dir"`
	ExportDir    string            `mapstructure:"export_dir"`
	ExportPrefix string            `mapstructure:"export_prefix"`
	Columns      map[string]string `mapstructure:"columns"`

	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests"`
	MaxOpenDatasets       int           `mapstructure:"max_open_datasets"`
	PreviewRowLimit       int           `mapstructure:"preview_row_limit"`
	OperationTimeout      time.Duration `mapstructure:"operation_timeout"`
}

// Load reads configuration from an optional file plus ENROLSIGHT_* environment
// variables. A missing config file is not an error; a malformed one is.
func Load(cfgFile string) (*Settings, error) {
	vp := viper.New()
	vp.SetDefault("data_dir", "data")
	vp.SetDefault("export_dir", ".")
	vp.SetDefault("export_prefix", DefaultExportPrefix)
	vp.SetDefault("max_concurrent_requests", DefaultMaxConcurrentRequests)
	vp.SetDefault("max_open_datasets", DefaultMaxOpenDatasets)
	vp.SetDefault("preview_row_limit", DefaultPreviewRowLimit)
	vp.SetDefault("operation_timeout", DefaultOperationTimeout)

	vp.SetEnvPrefix("ENROLSIGHT")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	} else {
		vp.SetConfigName("enrolsight")
		vp.SetConfigType("yaml")
		vp.AddConfigPath(".")
		if err := vp.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var s Settings
	if err := vp.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &s, nil
}
