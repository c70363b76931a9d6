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

package output

// Row is one output record keyed by column name. A nil value means the
// field was absent in the source and renders as an empty cell.
type Row map[string]any

// OutputWriter defines the interface for writing review rows.
// Implementations exist for delimited tables (CSV/TSV) and NDJSON.
type OutputWriter interface {
	// Write writes a single row to the output.
	// The row is flushed before Write returns so a crash loses at most one row.
	Write(row Row) error

	// Close flushes and closes the underlying writer and releases any resources.
	// This should be called when all writing is complete.
	Close() error
}
