package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, []string{"id"})

	if writer == nil {
		t.Fatal("NewWriter returned nil")
	}
	if writer.output != &buf {
		t.Error("Writer output doesn't match provided buffer")
	}
	if writer.encoder == nil {
		t.Error("Writer encoder is nil")
	}
	if writer.count != 0 {
		t.Errorf("Initial count should be 0, got %d", writer.count)
	}
}

func TestWriter_Write(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    []Row
		want    []string
	}{
		{
			name:    "single row",
			columns: []string{"review_id", "rating"},
			rows:    []Row{{"review_id": "rw1", "rating": 7}},
			want:    []string{`{"rating":7,"review_id":"rw1"}`},
		},
		{
			name:    "nil and missing become null",
			columns: []string{"review_id", "author", "date"},
			rows:    []Row{{"review_id": "rw2", "author": nil}},
			want:    []string{`{"author":null,"date":null,"review_id":"rw2"}`},
		},
		{
			name:    "keys outside schema dropped",
			columns: []string{"review_id"},
			rows:    []Row{{"review_id": "rw3", "extra": "x"}},
			want:    []string{`{"review_id":"rw3"}`},
		},
		{
			name:    "html is not escaped",
			columns: []string{"text"},
			rows:    []Row{{"text": "<b>bold</b> & more"}},
			want:    []string{`{"text":"<b>bold</b> & more"}`},
		},
		{
			name:    "empty rows",
			columns: []string{"review_id"},
			rows:    []Row{},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writer := NewWriter(&buf, tt.columns)

			for _, row := range tt.rows {
				if err := writer.Write(row); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
			}

			if writer.Count() != len(tt.rows) {
				t.Errorf("Count mismatch: got %d, want %d", writer.Count(), len(tt.rows))
			}

			output := strings.TrimSpace(buf.String())
			if output == "" && len(tt.want) == 0 {
				return
			}

			lines := strings.Split(output, "\n")
			if len(lines) != len(tt.want) {
				t.Fatalf("Line count mismatch: got %d, want %d", len(lines), len(tt.want))
			}
			for i, line := range lines {
				if line != tt.want[i] {
					t.Errorf("Line %d mismatch:\ngot:  %s\nwant: %s", i, line, tt.want[i])
				}
			}
		})
	}
}

func TestWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, []string{"id"})

	numGoroutines := 10
	rowsPerGoroutine := 100
	totalRows := numGoroutines * rowsPerGoroutine

	errCh := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			for j := 0; j < rowsPerGoroutine; j++ {
				if err := writer.Write(Row{"id": goroutineID*rowsPerGoroutine + j}); err != nil {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("Concurrent write failed: %v", err)
		}
	}

	if writer.Count() != totalRows {
		t.Errorf("Count mismatch: got %d, want %d", writer.Count(), totalRows)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != totalRows {
		t.Errorf("Line count mismatch: got %d, want %d", len(lines), totalRows)
	}
	for i, line := range lines {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Errorf("Invalid JSON at line %d: %v", i, err)
		}
	}
}

func TestNewFileWriter(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.ndjson")

	writer, err := NewFileWriter(filename, []string{"review_id"})
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer writer.Close()

	ids := []string{"rw1", "rw2"}
	for _, id := range ids {
		if err := writer.Write(Row{"review_id": id}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(ids) {
		t.Fatalf("Line count mismatch: got %d, want %d", len(lines), len(ids))
	}
	for i, line := range lines {
		var obj map[string]string
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("Failed to parse JSON at line %d: %v", i, err)
		}
		if obj["review_id"] != ids[i] {
			t.Errorf("review_id mismatch at line %d: got %s, want %s", i, obj["review_id"], ids[i])
		}
	}
}

func TestNewFileWriter_Error(t *testing.T) {
	_, err := NewFileWriter("/non/existent/path/test.ndjson", nil)
	if err == nil {
		t.Error("Expected error for non-existent directory, got nil")
	}
}

func TestWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, []string{"bad"})

	// A channel can't be marshaled to JSON
	err := writer.Write(Row{"bad": make(chan int)})
	if err == nil {
		t.Error("Expected error when writing non-marshalable data")
	}
}
