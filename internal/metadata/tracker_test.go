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

package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTracker_RecordReview(t *testing.T) {
	type review struct {
		id      string
		date    string
		emitted bool
	}
	tests := []struct {
		name    string
		reviews []review
		want    RunStats
	}{
		{
			name:    "single review",
			reviews: []review{{"rw1", "2024-01-02", true}},
			want:    RunStats{Emitted: 1, OldestReview: "2024-01-02", NewestReview: "2024-01-02"},
		},
		{
			name: "out of order dates",
			reviews: []review{
				{"rw1", "2024-03-01", true},
				{"rw2", "2023-12-31", true},
				{"rw3", "2024-05-05", true},
			},
			want: RunStats{Emitted: 3, OldestReview: "2023-12-31", NewestReview: "2024-05-05"},
		},
		{
			name: "duplicates do not widen the range",
			reviews: []review{
				{"rw1", "2024-03-01", true},
				{"rw0", "2001-01-01", false},
			},
			want: RunStats{Emitted: 1, Duplicates: 1, OldestReview: "2024-03-01", NewestReview: "2024-03-01"},
		},
		{
			name: "missing ids and dates",
			reviews: []review{
				{"", "", true},
				{"rw2", "", true},
			},
			want: RunStats{Emitted: 2, WithoutID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := New("tt1")
			for _, r := range tt.reviews {
				tracker.RecordReview(r.id, r.date, r.emitted)
			}
			if got := tracker.Stats(); got != tt.want {
				t.Errorf("Stats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTracker_GenerateMetadata(t *testing.T) {
	tracker := New("tt0111161")
	start := tracker.startTime
	tracker.now = func() time.Time { return start.Add(90 * time.Second) }

	tracker.IncrementRequest()
	tracker.IncrementRequest()
	tracker.RecordPage(25)
	tracker.RecordPage(3)
	tracker.RecordSeed(10)
	tracker.RecordReview("rw1", "2024-01-01", true)

	params := FetchParams{Mode: "persisted", PageSize: 25, SortBy: "HELPFULNESS_SCORE", SortOrder: "DESC", Dedup: true}
	out := OutputRef{Path: "out/tt0111161_all_reviews.csv", Format: "csv", Columns: []string{"review_id"}}
	prev := &RunRef{RunID: "previous", CompletedAt: start.Add(-time.Hour)}

	metadata := tracker.GenerateMetadata("v1.2.3", params, out, prev)

	if metadata.Version != "v1.2.3" || metadata.TitleID != "tt0111161" {
		t.Errorf("metadata header = %+v", metadata)
	}
	if _, err := uuid.Parse(metadata.RunID); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", metadata.RunID, err)
	}
	if metadata.RunID != tracker.RunID() {
		t.Error("RunID differs from tracker")
	}
	s := metadata.Stats
	if s.Pages != 2 || s.Requests != 2 || s.Fetched != 28 || s.Emitted != 1 || s.SeededIDs != 10 {
		t.Errorf("stats = %+v", s)
	}
	if s.Duration != "1m30s" {
		t.Errorf("Duration = %s, want 1m30s", s.Duration)
	}
	if metadata.PreviousRun == nil || metadata.PreviousRun.RunID != "previous" {
		t.Errorf("PreviousRun = %+v", metadata.PreviousRun)
	}
}

func TestSaveAndLoadLatestMetadata(t *testing.T) {
	tmpDir := t.TempDir()

	older := &RunMetadata{
		Version: "v1.0.0",
		RunID:   "run-1",
		TitleID: "tt1",
		Stats: RunStats{
			StartedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC),
		},
	}
	newer := &RunMetadata{
		Version: "v1.0.0",
		RunID:   "run-2",
		TitleID: "tt1",
		Stats: RunStats{
			StartedAt:   time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2024, 1, 2, 12, 5, 0, 0, time.UTC),
		},
	}
	otherTitle := &RunMetadata{
		RunID:   "run-x",
		TitleID: "tt10",
		Stats: RunStats{
			StartedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, m := range []*RunMetadata{newer, older, otherTitle} {
		if _, err := SaveMetadata(m, tmpDir); err != nil {
			t.Fatalf("SaveMetadata failed: %v", err)
		}
	}

	expectedFile := filepath.Join(tmpDir, "tt1_run-1704110400.json")
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("metadata file not created: %v", err)
	}
	var loaded RunMetadata
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("failed to parse metadata: %v", err)
	}
	if loaded.RunID != "run-1" {
		t.Errorf("RunID = %s, want run-1", loaded.RunID)
	}

	latest, err := LoadLatestMetadata(tmpDir, "tt1")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}
	if latest == nil || latest.RunID != "run-2" {
		t.Fatalf("latest = %+v, want run-2", latest)
	}
	if ref := latest.Ref(); ref.RunID != "run-2" || !ref.CompletedAt.Equal(newer.Stats.CompletedAt) {
		t.Errorf("Ref() = %+v", ref)
	}
}

func TestLoadLatestMetadata_None(t *testing.T) {
	latest, err := LoadLatestMetadata(filepath.Join(t.TempDir(), "missing"), "tt1")
	if err != nil || latest != nil {
		t.Errorf("LoadLatestMetadata() = %v, %v, want nil, nil", latest, err)
	}
	if (*RunMetadata)(nil).Ref() != nil {
		t.Error("nil metadata Ref() should be nil")
	}
}
