// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/pkg/types"
)

// envKeyReplacer maps nested keys to env names: http.base_url becomes
// NEOTOMA_ENV_HTTP_BASE_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// setDefaults registers every field of d so file, env, and flag values all
// resolve through v.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("http.base_url", d.HTTP.BaseURL)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("collect.batch_size", d.Collect.BatchSize)
	v.SetDefault("collect.max_records", d.Collect.MaxRecords)
	v.SetDefault("collect.limit", d.Collect.Limit)
	v.SetDefault("collect.page_delay", d.Collect.PageDelay)
	v.SetDefault("collect.skip_indexed", d.Collect.SkipIndexed)
	v.SetDefault("build.detail_delay", d.Build.DetailDelay)
	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("log_level", d.LogLevel)
}

// bindFlags binds each viper key to the named flag. Flags that do not exist
// are a programming error.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			panic(fmt.Sprintf("flag %q not defined", name))
		}
		if err := viper.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}

// loadConfig resolves the effective configuration from v.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg types.Config) error {
	switch {
	case cfg.Collect.BatchSize <= 0:
		return fmt.Errorf("collect.batch_size must be positive, got %d", cfg.Collect.BatchSize)
	case cfg.Collect.Limit < 0:
		return fmt.Errorf("collect.limit must not be negative, got %d", cfg.Collect.Limit)
	case cfg.Collect.MaxRecords < 0:
		return fmt.Errorf("collect.max_records must not be negative, got %d", cfg.Collect.MaxRecords)
	case cfg.Collect.PageDelay < 0 || cfg.Build.DetailDelay < 0:
		return fmt.Errorf("delays must not be negative")
	case cfg.Index.Path == "":
		return fmt.Errorf("index.path is required")
	case cfg.HTTP.BaseURL == "":
		return fmt.Errorf("http.base_url is required")
	}
	return nil
}
