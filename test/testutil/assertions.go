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

package testutil

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// AssertCSVOutput validates that a CSV file has the expected header and
// review_id column, in order.
func AssertCSVOutput(t *testing.T, filePath string, wantHeader []string, wantIDs []string) {
	t.Helper()

	header, rows := ReadCSV(t, filePath, ',')
	if strings.Join(header, ",") != strings.Join(wantHeader, ",") {
		t.Fatalf("header = %v, want %v", header, wantHeader)
	}

	idCol := -1
	for i, h := range header {
		if h == "review_id" {
			idCol = i
		}
	}
	if idCol < 0 {
		t.Fatalf("header %v has no review_id column", header)
	}

	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row[idCol])
	}
	if strings.Join(got, ",") != strings.Join(wantIDs, ",") {
		t.Errorf("review ids = %v, want %v", got, wantIDs)
	}
}

// AssertMetadataFile validates a run metadata file and returns its contents.
func AssertMetadataFile(t *testing.T, path string) map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read metadata file: %v", err)
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		t.Fatalf("Invalid metadata JSON: %v", err)
	}

	requiredFields := []string{"version", "run_id", "title_id", "fetch", "stats"}
	for _, field := range requiredFields {
		if _, ok := metadata[field]; !ok {
			t.Errorf("Missing required metadata field: %s", field)
		}
	}
	return metadata
}

// AssertContainsString checks if a string contains a substring
func AssertContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected string to contain %q, got: %s", needle, haystack)
	}
}

// AssertNotContainsString checks if a string does not contain a substring
func AssertNotContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Errorf("Expected string to NOT contain %q, got: %s", needle, haystack)
	}
}

// AssertDirExists checks that a directory exists
func AssertDirExists(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Expected directory to exist: %s", path)
		}
		t.Fatalf("Failed to stat directory: %v", err)
	}

	if !info.IsDir() {
		t.Fatalf("Expected %s to be a directory", path)
	}
}
