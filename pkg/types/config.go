package types

import "time"

// Default values for a run. They match the limits the Neotoma API tolerates
// for an unauthenticated client.
const (
	DefaultBaseURL     = "https://api.neotomadb.org/v2.0"
	DefaultIndexPath   = "depositional_env_index.json"
	DefaultHistoryPath = "neotoma-env.db"
	DefaultUserAgent   = "neotoma-env/0.1"
	DefaultTimeout     = 60 * time.Second
	DefaultBatchSize   = 500
	DefaultMaxRecords  = 100000
	DefaultLimit       = 10000
	DefaultDelay       = 250 * time.Millisecond
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// BaseURL is the Neotoma API root (e.g. "https://api.neotomadb.org/v2.0").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CollectConfig holds settings for dataset id collection.
type CollectConfig struct {
	// BatchSize is the page size requested from the listing endpoint.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// MaxRecords caps the listing offset; paging stops once it is reached.
	MaxRecords int `json:"max_records" yaml:"max_records" mapstructure:"max_records"`

	// Limit is the maximum number of ids returned by a collection run.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// PageDelay is the pause after each listing page.
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// SkipIndexed drops ids already present in the loaded index while
	// collecting, so Limit counts new datasets only.
	SkipIndexed bool `json:"skip_indexed" yaml:"skip_indexed" mapstructure:"skip_indexed"`
}

// BuildConfig holds settings for the index builder.
type BuildConfig struct {
	// DetailDelay is the pause after each successful detail fetch.
	DetailDelay time.Duration `json:"detail_delay" yaml:"detail_delay" mapstructure:"detail_delay"`
}

// IndexConfig locates the persisted environment index.
type IndexConfig struct {
	// Path is the JSON file holding the environment index.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups all settings for a run.
type Config struct {
	HTTP     HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Collect  CollectConfig `json:"collect" yaml:"collect" mapstructure:"collect"`
	Build    BuildConfig   `json:"build" yaml:"build" mapstructure:"build"`
	Index    IndexConfig   `json:"index" yaml:"index" mapstructure:"index"`
	History  HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	LogLevel string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Defaults returns the configuration used when no file, env, or flag overrides it.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Collect: CollectConfig{
			BatchSize:  DefaultBatchSize,
			MaxRecords: DefaultMaxRecords,
			Limit:      DefaultLimit,
			PageDelay:  DefaultDelay,
		},
		Build: BuildConfig{
			DetailDelay: DefaultDelay,
		},
		Index: IndexConfig{
			Path: DefaultIndexPath,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath,
		},
		LogLevel: "info",
	}
}
