package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every configuration validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete repcheck configuration
type Config struct {
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig selects the analysis algorithm options
type AnalysisConfig struct {
	Model         string `yaml:"model" mapstructure:"model" validate:"required,weightmodel"`
	Fuzziness     int    `yaml:"fuzziness" mapstructure:"fuzziness" validate:"gte=0,lte=100"`
	Passes        int    `yaml:"passes" mapstructure:"passes" validate:"gte=1"`
	MinLength     int    `yaml:"min_length" mapstructure:"min_length" validate:"gte=1"`
	MaxLength     int    `yaml:"max_length" mapstructure:"max_length" validate:"gte=0,phraselimit"` // 0 = unlimited
	CaseSensitive bool   `yaml:"case_sensitive" mapstructure:"case_sensitive"`
	OverlapSearch bool   `yaml:"overlap_search" mapstructure:"overlap_search"`
	Mode          string `yaml:"mode" mapstructure:"mode" validate:"oneof=auto single cross"`
	Morphemes     bool   `yaml:"morphemes" mapstructure:"morphemes"`
}

// InputConfig controls how documents are read and fetched
type InputConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes  int64         `yaml:"max_bytes" mapstructure:"max_bytes" validate:"gte=0"`
	Retries   int           `yaml:"retries" mapstructure:"retries" validate:"gte=0,lte=10"`

	// Per-host fetch rate; 0 disables limiting
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// CacheConfig controls the in-memory source cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// OutputConfig selects report sinks
type OutputConfig struct {
	JSON     string `yaml:"json" mapstructure:"json"`
	Markdown string `yaml:"markdown" mapstructure:"markdown"`
	HTMLDir  string `yaml:"html_dir" mapstructure:"html_dir"`
	Top      int    `yaml:"top" mapstructure:"top" validate:"gte=0"` // 0 = all phrases
	Color    string `yaml:"color" mapstructure:"color" validate:"oneof=auto always never"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// MetricsConfig enables Prometheus textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// StoreConfig enables SQLite report export
type StoreConfig struct {
	SQLite string `yaml:"sqlite" mapstructure:"sqlite"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// WeightModelNames lists every accepted spelling of a weight model
var WeightModelNames = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10",
	"F", "L", "FL", "FL/wf", "FLR", "FLE", "FLElogL", "FL/wfP", "2005", "2005b",
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("weightmodel", validateWeightModel)
	_ = configValidate.RegisterValidation("phraselimit", validatePhraseLimit)
}

func validateWeightModel(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, n := range WeightModelNames {
		if n == name {
			return true
		}
	}
	return false
}

// validatePhraseLimit accepts an unlimited (0) maximum or one not below the minimum
func validatePhraseLimit(fl validator.FieldLevel) bool {
	limit := fl.Field().Int()
	if limit == 0 {
		return true
	}
	return limit >= fl.Parent().FieldByName("MinLength").Int()
}

// Validate checks the configuration and reports every violated rule
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Model:     "2005",
			Fuzziness: 0,
			Passes:    2,
			MinLength: 2,
			MaxLength: 0,
			Mode:      "auto",
		},
		Input: InputConfig{
			Timeout:   30 * time.Second,
			UserAgent: "repcheck/1.0",
			MaxBytes:  32 << 20,
			Retries:   2,

			RequestsPerSecond: 2,
			Burst:             4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Output: OutputConfig{
			Top:   25,
			Color: "auto",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
