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

// Package metadata provides functionality for tracking and persisting metadata
// about review runs. It records statistics about each run including pages
// and requests made, reviews fetched, emitted and skipped as duplicates, the
// date range covered, and a link to the previous run of the same title.
//
// Metadata is saved as JSON files alongside the output, allowing external
// tools to analyze run history.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tracker collects statistics during a run and generates metadata. Create a
// new tracker at the start of each run and call its methods to record
// activity. A Tracker is owned by the single fetch loop and is not safe for
// concurrent use.
type Tracker struct {
	runID     string
	titleID   string
	startTime time.Time
	now       func() time.Time
	stats     RunStats
}

// New creates a tracker for titleID with a fresh run ID and starts the clock.
func New(titleID string) *Tracker {
	return &Tracker{
		runID:     uuid.NewString(),
		titleID:   titleID,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RunID returns the identifier of this run.
func (t *Tracker) RunID() string {
	return t.runID
}

// IncrementRequest records one upstream request.
func (t *Tracker) IncrementRequest() {
	t.stats.Requests++
}

// RecordPage records one successfully fetched page.
func (t *Tracker) RecordPage(nodes int) {
	t.stats.Pages++
	t.stats.Fetched += nodes
}

// RecordSeed records the size of the ledger seed.
func (t *Tracker) RecordSeed(ids int) {
	t.stats.SeededIDs = ids
}

// RecordReview records one extracted review. An empty id counts the review
// as unidentified; date, when present, widens the covered date range.
func (t *Tracker) RecordReview(id, date string, emitted bool) {
	if id == "" {
		t.stats.WithoutID++
	}
	if !emitted {
		t.stats.Duplicates++
		return
	}
	t.stats.Emitted++

	if date == "" {
		return
	}
	if t.stats.OldestReview == "" || date < t.stats.OldestReview {
		t.stats.OldestReview = date
	}
	if date > t.stats.NewestReview {
		t.stats.NewestReview = date
	}
}

// Stats returns a snapshot of the statistics collected so far.
func (t *Tracker) Stats() RunStats {
	return t.stats
}

// GenerateMetadata creates the metadata record of the run. Call this at the
// end of a successful run.
func (t *Tracker) GenerateMetadata(version string, params FetchParams, output OutputRef, previous *RunRef) *RunMetadata {
	completedAt := t.now()
	stats := t.stats
	stats.StartedAt = t.startTime
	stats.CompletedAt = completedAt
	stats.Duration = completedAt.Sub(t.startTime).Round(time.Millisecond).String()

	return &RunMetadata{
		Version:     version,
		RunID:       t.runID,
		TitleID:     t.titleID,
		Fetch:       params,
		Stats:       stats,
		Output:      output,
		PreviousRun: previous,
	}
}

// metadataPrefix returns the file name prefix of a title's metadata files.
func metadataPrefix(titleID string) string {
	return titleID + "_run-"
}

// SaveMetadata persists a RunMetadata record to a JSON file in dir. The file
// is written atomically using a temporary file and rename to prevent
// corruption. The file is named <title>_run-<unix>.json and its path is
// returned.
func SaveMetadata(metadata *RunMetadata, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}

	filename := fmt.Sprintf("%s%d.json", metadataPrefix(metadata.TitleID), metadata.Stats.StartedAt.Unix())
	path := filepath.Join(dir, filename)

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(metadata); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return "", fmt.Errorf("failed to save metadata file: %w", err)
	}

	return path, nil
}

// LoadLatestMetadata loads the most recently completed run of titleID from
// dir. It returns nil when there is no previous run.
func LoadLatestMetadata(dir, titleID string) (*RunMetadata, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	var latest *RunMetadata
	prefix := metadataPrefix(titleID)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var m RunMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse metadata %s: %w", name, err)
		}
		if m.TitleID != titleID {
			continue
		}
		if latest == nil || m.Stats.CompletedAt.After(latest.Stats.CompletedAt) {
			latest = &m
		}
	}
	return latest, nil
}

// Ref returns a reference to m for linking the next run.
func (m *RunMetadata) Ref() *RunRef {
	if m == nil {
		return nil
	}
	return &RunRef{RunID: m.RunID, CompletedAt: m.Stats.CompletedAt}
}
