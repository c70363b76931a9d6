// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for review-relay with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables (REVIEW_RELAY_*, optionally from a .env file)
//  3. Title-specific configuration
//  4. Configuration file
//  5. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sirseerhq/review-relay/internal/review"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "REVIEW_RELAY_"

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .review-relay.yaml (current directory)
//   - .review-relay.yml (current directory)
//   - ~/.review-relay/config.yaml
//
// A .env file in the current directory is loaded into the process
// environment first; variables that are already set win over it.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	return load(configPath, "")
}

// LoadConfigForTitle loads configuration like LoadConfig, applying the
// overrides listed under titles.<titleID> before environment variables.
func LoadConfigForTitle(configPath, titleID string) (*Config, error) {
	return load(configPath, titleID)
}

func load(configPath, titleID string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, path := range defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	if titleID != "" {
		cfg.ApplyTitle(titleID)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Output.Dir = expandPath(cfg.Output.Dir)
	cfg.Metrics.Textfile = expandPath(cfg.Metrics.Textfile)

	return cfg, nil
}

// ApplyTitle copies the non-empty overrides of titleID into the fetch
// settings.
func (c *Config) ApplyTitle(titleID string) {
	t, ok := c.Titles[titleID]
	if !ok {
		return
	}
	if t.PageSize > 0 {
		c.Fetch.PageSize = t.PageSize
	}
	if t.SortBy != "" {
		c.Fetch.SortBy = t.SortBy
	}
	if t.SortOrder != "" {
		c.Fetch.SortOrder = t.SortOrder
	}
	if t.Locale != "" {
		c.Fetch.Locale = t.Locale
	}
}

func defaultPaths() []string {
	paths := []string{".review-relay.yaml", ".review-relay.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".review-relay", "config.yaml"))
	}
	return paths
}

// loadConfigFile reads and parses a YAML config file. Unknown keys are
// rejected so typos do not go unnoticed.
func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads path into the environment if it exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies REVIEW_RELAY_* variables to cfg.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	strs := map[string]*string{
		"ENDPOINT":         &cfg.IMDb.Endpoint,
		"SITE_URL":         &cfg.IMDb.SiteURL,
		"MODE":             &cfg.IMDb.Mode,
		"USER_AGENT":       &cfg.IMDb.UserAgent,
		"QUERY_HASH":       &cfg.IMDb.QueryHash,
		"SORT_BY":          &cfg.Fetch.SortBy,
		"SORT_ORDER":       &cfg.Fetch.SortOrder,
		"LOCALE":           &cfg.Fetch.Locale,
		"OUTPUT_DIR":       &cfg.Output.Dir,
		"FORMAT":           &cfg.Output.Format,
		"SCHEMA":           &cfg.Output.Schema,
		"DEDUP_BACKEND":    &cfg.Dedup.Backend,
		"REDIS_ADDR":       &cfg.Dedup.RedisAddr,
		"REDIS_PASSWORD":   &cfg.Dedup.RedisPassword,
		"REDIS_PREFIX":     &cfg.Dedup.RedisPrefix,
		"METRICS_TEXTFILE": &cfg.Metrics.Textfile,
		"METRICS_LISTEN":   &cfg.Metrics.Listen,
		"POSTGRES_URL":     &cfg.Export.PostgresURL,
		"POSTGRES_TABLE":   &cfg.Export.Table,
		"LOG_LEVEL":        &cfg.Log.Level,
		"LOG_FORMAT":       &cfg.Log.Format,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	if v, ok := get("COLUMNS"); ok {
		cfg.Output.Columns = splitList(v)
	}

	ints := map[string]*int{
		"PAGE_SIZE":      &cfg.Fetch.PageSize,
		"REDIS_DB":       &cfg.Dedup.RedisDB,
		"POSTGRES_BATCH": &cfg.Export.BatchSize,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"PRIME":     &cfg.IMDb.Prime,
		"DEDUP":     &cfg.Dedup.Enabled,
		"ARCHIVE":   &cfg.Archive.Enabled,
		"TIMESTAMP": &cfg.Output.Timestamp,
	}
	for name, dst := range bools {
		if v, ok := get(name); ok {
			b, err := parseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"DELAY":   &cfg.Fetch.Delay,
		"TIMEOUT": &cfg.IMDb.Timeout,
	}
	for name, dst := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
			}
			*dst = d
		}
	}

	if v, ok := get("RPS"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %sRPS %q: %w", EnvPrefix, v, err)
		}
		cfg.Fetch.RequestsPerSecond = f
	}
	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// parseBool parses various boolean representations
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the rules that span several
// settings. It should be called after flags have been applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Dedup.Enabled && c.Output.Schema == "fixed" && !contains(c.Columns(), review.FieldReviewID) {
		return fmt.Errorf("invalid config: dedup needs the %s column in output.columns", review.FieldReviewID)
	}
	if c.Output.Schema == "dynamic" && len(c.Output.Columns) > 0 {
		return errors.New("invalid config: output.columns only applies to the fixed schema")
	}
	return nil
}

// Columns returns the fixed-schema columns in effect.
func (c *Config) Columns() []string {
	if len(c.Output.Columns) > 0 {
		return c.Output.Columns
	}
	return review.Columns
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
