package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/potential-cli/internal/summary"
	"github.com/sells-group/potential-cli/internal/table"
)

// Config holds the full application configuration.
type Config struct {
	Table   table.Source  `yaml:"table" mapstructure:"table"`
	Summary SummaryConfig `yaml:"summary" mapstructure:"summary"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SummaryConfig names the value fields and the summary field to write.
type SummaryConfig struct {
	GrossField   string `yaml:"gross_field" mapstructure:"gross_field"`
	AverageField string `yaml:"average_field" mapstructure:"average_field"`
	Field        string `yaml:"field" mapstructure:"field"`
	Alias        string `yaml:"alias" mapstructure:"alias"`
	Length       int    `yaml:"length" mapstructure:"length"`
}

// TextField returns the summary field description.
func (s SummaryConfig) TextField() summary.TextField {
	return summary.TextField{Name: s.Field, Alias: s.Alias, Length: s.Length}
}

// BatchConfig configures job-file execution.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load merges config.yaml (working directory first, then the user config
// directory), POTENTIAL_* environment variables and built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "potential"))
	}

	// POTENTIAL_SUMMARY_GROSS_FIELD -> summary.gross_field
	v.SetEnvPrefix("POTENTIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env lookup only applies to keys viper already knows, so the table and
	// field names carry empty defaults.
	v.SetDefault("table.driver", "")
	v.SetDefault("table.path", "")
	v.SetDefault("table.database_url", "")
	v.SetDefault("table.name", "")
	v.SetDefault("summary.gross_field", "")
	v.SetDefault("summary.average_field", "")
	v.SetDefault("summary.field", "summary")
	v.SetDefault("summary.alias", summary.DefaultFieldAlias)
	v.SetDefault("summary.length", summary.DefaultFieldLength)
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// A missing config.yaml is fine; flags and env can supply everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// NewLogger builds a zap logger for cfg. "console" selects the human-readable
// development encoder on stderr; anything else logs JSON.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrapf(err, "config: log level %q", cfg.Level)
	}

	zapCfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}

// InitLogger installs the logger for cfg as zap's global logger.
func InitLogger(cfg LogConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// Validate checks that the settings required by a command mode are present.
// Modes: "summarize", "stats", "batch".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "summarize", "stats":
		if c.Table.Path == "" && c.Table.DatabaseURL == "" {
			errs = append(errs, "table.path or table.database_url is required")
		}
		if c.Summary.GrossField == "" {
			errs = append(errs, "summary.gross_field is required")
		}
		if c.Summary.AverageField == "" {
			errs = append(errs, "summary.average_field is required")
		}
		if mode == "summarize" {
			if c.Summary.Field == "" {
				errs = append(errs, "summary.field is required")
			}
			if c.Summary.Length <= 0 {
				errs = append(errs, "summary.length must be > 0")
			}
		}
	case "batch":
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 32 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 32")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
