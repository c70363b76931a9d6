package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Writer handles streaming NDJSON output to a file or io.Writer.
// Each row becomes one JSON object holding exactly the configured columns.
type Writer struct {
	mu        sync.Mutex
	output    io.Writer
	encoder   *json.Encoder
	columns   []string
	count     int
	closeFunc func() error
}

// NewWriter creates a new NDJSON writer that writes to the specified output.
func NewWriter(w io.Writer, columns []string) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{
		output:  w,
		encoder: enc,
		columns: columns,
	}
}

// NewFileWriter creates a new NDJSON writer that writes to a file.
// The caller must call Close() when done to ensure the file is properly closed.
func NewFileWriter(filename string, columns []string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := NewWriter(file, columns)
	w.closeFunc = file.Close
	return w, nil
}

// Write writes a single row as NDJSON. Columns missing from the row are
// written as null; keys outside the schema are dropped.
func (w *Writer) Write(row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	obj := make(map[string]any, len(w.columns))
	for _, col := range w.columns {
		obj[col] = row[col]
	}

	if err := w.encoder.Encode(obj); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying writer if it's a file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closeFunc != nil {
		closeFn := w.closeFunc
		w.closeFunc = nil
		return closeFn()
	}
	return nil
}
