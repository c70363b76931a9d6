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

// Package metadata types define the structures used for tracking and
// persisting information about review runs. These types capture run
// statistics and the settings used, for auditing and troubleshooting.
package metadata

import (
	"time"
)

// RunMetadata represents the complete metadata record for a single run. It
// captures what was fetched, how it was fetched, and where the results went.
type RunMetadata struct {
	Version     string      `json:"version"`
	RunID       string      `json:"run_id"`
	TitleID     string      `json:"title_id"`
	Fetch       FetchParams `json:"fetch"`
	Stats       RunStats    `json:"stats"`
	Output      OutputRef   `json:"output"`
	PreviousRun *RunRef     `json:"previous_run,omitempty"`
}

// FetchParams captures the settings a run was started with.
type FetchParams struct {
	Mode      string `json:"mode"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
	Locale    string `json:"locale"`
	Delay     string `json:"page_delay"`
	Dedup     bool   `json:"dedup"`
	Archive   bool   `json:"archive"`
	Schema    string `json:"schema"`
}

// RunStats contains the statistics of a completed run.
type RunStats struct {
	Pages        int       `json:"pages"`
	Requests     int       `json:"requests"`
	Fetched      int       `json:"reviews_fetched"`
	Emitted      int       `json:"reviews_emitted"`
	Duplicates   int       `json:"duplicates_skipped"`
	WithoutID    int       `json:"reviews_without_id"`
	SeededIDs    int       `json:"seeded_ids"`
	OldestReview string    `json:"oldest_review_date,omitempty"`
	NewestReview string    `json:"newest_review_date,omitempty"`
	Duration     string    `json:"duration"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// OutputRef locates the artifacts a run produced.
type OutputRef struct {
	Path       string   `json:"path"`
	Format     string   `json:"format"`
	Columns    []string `json:"columns"`
	ArchiveDir string   `json:"archive_dir,omitempty"`
}

// RunRef provides a lightweight reference to a previous run of the same
// title, linking dedup runs to their predecessors.
type RunRef struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
}
