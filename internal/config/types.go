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

// Package config types define the configuration structures used throughout
// review-relay. These types represent settings that can be loaded from
// YAML configuration files, environment variables, or command-line flags.
package config

import (
	"time"

	"github.com/sirseerhq/review-relay/internal/fetch"
	"github.com/sirseerhq/review-relay/internal/imdb"
)

// Config represents the complete configuration for review-relay.
type Config struct {
	IMDb    IMDbConfig             `yaml:"imdb"`
	Fetch   FetchConfig            `yaml:"fetch"`
	Output  OutputConfig           `yaml:"output"`
	Dedup   DedupConfig            `yaml:"dedup"`
	Archive ArchiveConfig          `yaml:"archive"`
	Metrics MetricsConfig          `yaml:"metrics"`
	Export  ExportConfig           `yaml:"export"`
	Log     LogConfig              `yaml:"log"`
	Titles  map[string]TitleConfig `yaml:"titles" validate:"dive,keys,required,endkeys"`
}

// Upstream request modes.
const (
	ModePersisted = "persisted"
	ModeInline    = "inline"
)

// IMDbConfig describes the upstream API. Only the endpoints usually need
// changing, for example to point at a recording proxy.
type IMDbConfig struct {
	Endpoint         string        `yaml:"endpoint" validate:"required,url"`
	SiteURL          string        `yaml:"site_url" validate:"required,url"`
	Mode             string        `yaml:"mode" validate:"oneof=persisted inline"`
	UserAgent        string        `yaml:"user_agent" validate:"required"`
	AcceptLanguage   string        `yaml:"accept_language"`
	OperationName    string        `yaml:"operation_name" validate:"required"`
	QueryHash        string        `yaml:"query_hash" validate:"required,len=64,hexadecimal"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxResponseBytes int64         `yaml:"max_response_bytes" validate:"gt=0"`
	Prime            bool          `yaml:"prime"`
}

// FetchConfig controls pagination.
type FetchConfig struct {
	PageSize          int           `yaml:"page_size" validate:"min=1,max=100"`
	SortBy            string        `yaml:"sort_by" validate:"oneof=HELPFULNESS_SCORE SUBMISSION_DATE TOTAL_VOTES USER_RATING"`
	SortOrder         string        `yaml:"sort_order" validate:"oneof=ASC DESC"`
	Locale            string        `yaml:"locale" validate:"required"`
	Delay             time.Duration `yaml:"delay" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
}

// OutputConfig controls the written artifact.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format" validate:"oneof=csv tsv ndjson"`
	Schema string `yaml:"schema" validate:"oneof=fixed dynamic"`

	// Columns overrides the fixed schema.
	Columns []string `yaml:"columns" validate:"omitempty,unique,dive,oneof=review_id author rating title text helpful_upvotes helpful_downvotes date"`

	// Timestamp appends the run time to the file name.
	Timestamp bool `yaml:"timestamp"`
}

// DedupConfig controls cross-run deduplication.
type DedupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Backend       string `yaml:"backend" validate:"oneof=memory redis"`
	RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// ArchiveConfig controls raw page archival.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls metric export. Both outputs are off when empty.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
	Listen   string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// ExportConfig controls the optional Postgres mirror.
type ExportConfig struct {
	PostgresURL string `yaml:"postgres_url" validate:"omitempty,url"`
	Table       string `yaml:"table"`
	BatchSize   int    `yaml:"batch_size" validate:"gte=0"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error off disabled"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// TitleConfig contains per-title overrides, keyed by title ID.
type TitleConfig struct {
	PageSize  int    `yaml:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string `yaml:"sort_by" validate:"omitempty,oneof=HELPFULNESS_SCORE SUBMISSION_DATE TOTAL_VOTES USER_RATING"`
	SortOrder string `yaml:"sort_order" validate:"omitempty,oneof=ASC DESC"`
	Locale    string `yaml:"locale"`
}

// DefaultConfig returns the settings the IMDb web frontend uses, writing a
// fixed-schema CSV into the working directory.
func DefaultConfig() *Config {
	return &Config{
		IMDb: IMDbConfig{
			Endpoint:         imdb.DefaultEndpoint,
			SiteURL:          imdb.DefaultSiteURL,
			Mode:             ModePersisted,
			UserAgent:        imdb.DefaultUserAgent,
			AcceptLanguage:   imdb.DefaultAcceptLanguage,
			OperationName:    imdb.DefaultOperationName,
			QueryHash:        imdb.DefaultQueryHash,
			Timeout:          imdb.DefaultTimeout,
			MaxResponseBytes: imdb.DefaultMaxResponse,
			Prime:            true,
		},
		Fetch: FetchConfig{
			PageSize:  imdb.DefaultPageSize,
			SortBy:    imdb.SortByHelpfulness,
			SortOrder: imdb.SortDescending,
			Locale:    imdb.DefaultLocale,
			Delay:     fetch.DefaultDelay,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: "csv",
			Schema: "fixed",
		},
		Dedup: DedupConfig{
			Backend:     "memory",
			RedisPrefix: "review-relay:seen",
		},
		Export: ExportConfig{
			Table:     "imdb_reviews",
			BatchSize: 200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Titles: make(map[string]TitleConfig),
	}
}
