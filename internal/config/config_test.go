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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdir switches into dir for the duration of the test so that relative
// config and .env discovery does not pick up files from the repository.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IMDb.Endpoint != "https://caching.graphql.imdb.com/" {
		t.Errorf("Endpoint = %s", cfg.IMDb.Endpoint)
	}
	if cfg.IMDb.Mode != ModePersisted || !cfg.IMDb.Prime {
		t.Errorf("Mode = %s, Prime = %v; want persisted, true", cfg.IMDb.Mode, cfg.IMDb.Prime)
	}
	if cfg.IMDb.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.IMDb.Timeout)
	}
	if cfg.Fetch.PageSize != 25 || cfg.Fetch.SortBy != "HELPFULNESS_SCORE" || cfg.Fetch.SortOrder != "DESC" {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Fetch.Delay != 800*time.Millisecond {
		t.Errorf("Delay = %v, want 800ms", cfg.Fetch.Delay)
	}
	if cfg.Output.Format != "csv" || cfg.Output.Schema != "fixed" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Dedup.Enabled || cfg.Archive.Enabled {
		t.Error("dedup and archive should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	configPath := filepath.Join(dir, "config.yaml")

	writeFile(t, configPath, `
imdb:
  endpoint: http://localhost:8080/graphql
  mode: inline
  timeout: 5s
fetch:
  page_size: 10
  delay: 2s
  requests_per_second: 1.5
output:
  dir: out
  format: tsv
  columns: [review_id, author, title, text, helpful_upvotes, helpful_downvotes, date]
dedup:
  enabled: true
  backend: redis
  redis_addr: localhost:6379
archive:
  enabled: true
titles:
  tt0111161:
    page_size: 5
    sort_by: SUBMISSION_DATE
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.IMDb.Endpoint != "http://localhost:8080/graphql" || cfg.IMDb.Mode != "inline" {
		t.Errorf("IMDb = %+v", cfg.IMDb)
	}
	if cfg.IMDb.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.IMDb.Timeout)
	}
	// Settings absent from the file keep their defaults.
	if cfg.IMDb.QueryHash == "" || cfg.Fetch.Locale != "en-US" {
		t.Error("unset fields lost their defaults")
	}
	if cfg.Fetch.PageSize != 10 || cfg.Fetch.Delay != 2*time.Second || cfg.Fetch.RequestsPerSecond != 1.5 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Output.Format != "tsv" || len(cfg.Output.Columns) != 7 {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if !cfg.Dedup.Enabled || cfg.Dedup.Backend != "redis" || !cfg.Archive.Enabled {
		t.Errorf("Dedup = %+v, Archive = %+v", cfg.Dedup, cfg.Archive)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.ApplyTitle("tt0111161")
	if cfg.Fetch.PageSize != 5 || cfg.Fetch.SortBy != "SUBMISSION_DATE" || cfg.Fetch.SortOrder != "DESC" {
		t.Errorf("after ApplyTitle Fetch = %+v", cfg.Fetch)
	}
}

func TestLoadConfigForTitle(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	configPath := filepath.Join(dir, "config.yaml")
	writeFile(t, configPath, "titles:\n  tt1:\n    locale: de-DE\n")

	cfg, err := LoadConfigForTitle(configPath, "tt1")
	if err != nil {
		t.Fatalf("LoadConfigForTitle failed: %v", err)
	}
	if cfg.Fetch.Locale != "de-DE" {
		t.Errorf("Locale = %s, want de-DE", cfg.Fetch.Locale)
	}

	cfg, err = LoadConfigForTitle(configPath, "tt2")
	if err != nil {
		t.Fatalf("LoadConfigForTitle failed: %v", err)
	}
	if cfg.Fetch.Locale != "en-US" {
		t.Errorf("unrelated title got Locale = %s", cfg.Fetch.Locale)
	}
}

func TestLoadConfigForTitle_Precedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	configPath := filepath.Join(dir, "config.yaml")
	writeFile(t, configPath, "fetch:\n  sort_order: ASC\ntitles:\n  tt1:\n    locale: de-DE\n    page_size: 10\n    sort_order: DESC\n")

	t.Setenv("REVIEW_RELAY_LOCALE", "fr-FR")

	cfg, err := LoadConfigForTitle(configPath, "tt1")
	if err != nil {
		t.Fatalf("LoadConfigForTitle failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"env beats title", cfg.Fetch.Locale, "fr-FR"},
		{"title beats file", cfg.Fetch.SortOrder, "DESC"},
		{"title beats default", cfg.Fetch.PageSize, 10},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadConfig_Discovery(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)

	writeFile(t, filepath.Join(dir, ".review-relay.yml"), "output:\n  format: ndjson\n")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.Format != "ndjson" {
		t.Errorf("Format = %s, want ndjson from discovered file", cfg.Output.Format)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "fetch:\n  page_size: [1, 2\n")
	if _, err := LoadConfig(bad); err == nil {
		t.Error("expected error for invalid YAML")
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "fetch:\n  page_sise: 10\n")
	if _, err := LoadConfig(unknown); err == nil {
		t.Error("expected error for unknown key")
	}

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	if _, err := LoadConfig(empty); err != nil {
		t.Errorf("empty config file should load, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("REVIEW_RELAY_PAGE_SIZE", "50")
	t.Setenv("REVIEW_RELAY_DELAY", "1500ms")
	t.Setenv("REVIEW_RELAY_DEDUP", "yes")
	t.Setenv("REVIEW_RELAY_FORMAT", "ndjson")
	t.Setenv("REVIEW_RELAY_COLUMNS", "review_id, author ,date")
	t.Setenv("REVIEW_RELAY_RPS", "2")
	t.Setenv("REVIEW_RELAY_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Fetch.PageSize != 50 || cfg.Fetch.Delay != 1500*time.Millisecond || cfg.Fetch.RequestsPerSecond != 2 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if !cfg.Dedup.Enabled || cfg.Output.Format != "ndjson" || cfg.Log.Level != "debug" {
		t.Errorf("Dedup = %v, Format = %s, Level = %s", cfg.Dedup.Enabled, cfg.Output.Format, cfg.Log.Level)
	}
	if got := strings.Join(cfg.Output.Columns, "|"); got != "review_id|author|date" {
		t.Errorf("Columns = %s", got)
	}
}

func TestEnvOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"int", "REVIEW_RELAY_PAGE_SIZE", "many"},
		{"bool", "REVIEW_RELAY_ARCHIVE", "maybe"},
		{"duration", "REVIEW_RELAY_DELAY", "soon"},
		{"float", "REVIEW_RELAY_RPS", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == tt.key {
					return tt.value, true
				}
				return "", false
			}
			err := applyEnvOverrides(DefaultConfig(), lookup)
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error = %v, want one naming %s", err, tt.key)
			}
		})
	}
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join(dir, ".env"), "REVIEW_RELAY_OUTPUT_DIR=from-dotenv\nREVIEW_RELAY_LOCALE=fr-FR\n")

	// Variables already in the environment win over .env.
	t.Setenv("REVIEW_RELAY_LOCALE", "it-IT")
	// Make sure the .env value does not leak into other tests.
	t.Setenv("REVIEW_RELAY_OUTPUT_DIR", "")
	os.Unsetenv("REVIEW_RELAY_OUTPUT_DIR")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.Dir != "from-dotenv" {
		t.Errorf("Output.Dir = %s, want from-dotenv", cfg.Output.Dir)
	}
	if cfg.Fetch.Locale != "it-IT" {
		t.Errorf("Locale = %s, want it-IT", cfg.Fetch.Locale)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("RELAY_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{"~/reviews", filepath.Join(home, "reviews")},
		{"$RELAY_TEST_DIR/out", "/data/out"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"zero page size", func(c *Config) { c.Fetch.PageSize = 0 }, "PageSize"},
		{"page size too large", func(c *Config) { c.Fetch.PageSize = 500 }, "PageSize"},
		{"unknown format", func(c *Config) { c.Output.Format = "xlsx" }, "Format"},
		{"unknown schema", func(c *Config) { c.Output.Schema = "auto" }, "Schema"},
		{"unknown column", func(c *Config) { c.Output.Columns = []string{"review_id", "likes"} }, "Columns"},
		{"duplicate column", func(c *Config) { c.Output.Columns = []string{"author", "author"} }, "Columns"},
		{"negative delay", func(c *Config) { c.Fetch.Delay = -time.Second }, "Delay"},
		{"bad mode", func(c *Config) { c.IMDb.Mode = "rest" }, "Mode"},
		{"bad hash", func(c *Config) { c.IMDb.QueryHash = "abc" }, "QueryHash"},
		{"bad endpoint", func(c *Config) { c.IMDb.Endpoint = "not a url" }, "Endpoint"},
		{"redis without addr", func(c *Config) { c.Dedup.Backend = "redis" }, "RedisAddr"},
		{"redis with addr", func(c *Config) { c.Dedup.Backend = "redis"; c.Dedup.RedisAddr = "localhost:6379" }, ""},
		{"bad metrics listen", func(c *Config) { c.Metrics.Listen = "nowhere" }, "Listen"},
		{"bad title override", func(c *Config) { c.Titles["tt1"] = TitleConfig{SortOrder: "UP"} }, "SortOrder"},
		{"dedup without id column", func(c *Config) {
			c.Dedup.Enabled = true
			c.Output.Columns = []string{"author", "text"}
		}, "review_id"},
		{"columns with dynamic schema", func(c *Config) {
			c.Output.Schema = "dynamic"
			c.Output.Columns = []string{"author"}
		}, "fixed schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.Columns()) != 8 {
		t.Errorf("default Columns() = %v, want 8 review columns", cfg.Columns())
	}
	cfg.Output.Columns = []string{"review_id", "date"}
	if got := strings.Join(cfg.Columns(), ","); got != "review_id,date" {
		t.Errorf("Columns() = %s", got)
	}
}
