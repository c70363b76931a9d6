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

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// TableWriter writes rows as a delimited table with a single header row.
// It is safe for concurrent use.
type TableWriter struct {
	mu         sync.Mutex
	writer     *csv.Writer
	columns    []string
	headerDone bool
	count      int
	closeFunc  func() error
}

// NewTableWriter creates a table writer over w using comma as the field
// delimiter. The header is written lazily on the first Write or on Close.
func NewTableWriter(w io.Writer, columns []string, comma rune) *TableWriter {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	return &TableWriter{
		writer:  cw,
		columns: columns,
	}
}

// NewTableFileWriter creates (or truncates) the file at path and returns a
// table writer over it. Intermediate directories are created automatically.
func NewTableFileWriter(path string, columns []string, comma rune) (*TableWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %q: %w", path, err)
	}

	tw := NewTableWriter(f, columns, comma)
	tw.closeFunc = f.Close
	return tw, nil
}

// Write writes one row, in column order. Missing and nil cells are empty.
func (t *TableWriter) Write(row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeHeader(); err != nil {
		return err
	}

	record := make([]string, len(t.columns))
	for i, col := range t.columns {
		record[i] = formatCell(row[col])
	}
	if err := t.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}

	t.count++
	return nil
}

// Count returns the number of data rows written.
func (t *TableWriter) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Close writes the header if nothing was written yet, flushes, and closes
// the underlying file.
func (t *TableWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	headerErr := t.writeHeader()
	t.writer.Flush()
	flushErr := t.writer.Error()

	var closeErr error
	if t.closeFunc != nil {
		closeErr = t.closeFunc()
		t.closeFunc = nil
	}

	switch {
	case headerErr != nil:
		return headerErr
	case flushErr != nil:
		return fmt.Errorf("failed to flush output: %w", flushErr)
	}
	return closeErr
}

func (t *TableWriter) writeHeader() error {
	if t.headerDone {
		return nil
	}
	if err := t.writer.Write(t.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	t.headerDone = true
	return nil
}

// formatCell renders a decoded JSON scalar for a table cell.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
