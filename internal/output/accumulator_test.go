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
	"bytes"
	"errors"
	"testing"
)

// memWriter records rows and whether it was closed.
type memWriter struct {
	columns []string
	rows    []Row
	closed  int
	failOn  int
}

func (m *memWriter) Write(row Row) error {
	if m.failOn > 0 && len(m.rows)+1 == m.failOn {
		return errors.New("disk full")
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *memWriter) Close() error {
	m.closed++
	return nil
}

func recordingOpener(dst **memWriter) Opener {
	return func(columns []string) (OutputWriter, error) {
		*dst = &memWriter{columns: columns}
		return *dst, nil
	}
}

func TestAccumulator_BufferedDynamic(t *testing.T) {
	var w *memWriter
	acc := NewAccumulator(Schema{Mode: ModeDynamic}, recordingOpener(&w))

	_ = acc.Add(Row{"a": 1, "b": nil})
	_ = acc.Add(Row{"a": 2, "c": 3})

	if w != nil {
		t.Fatal("buffered accumulator opened its writer before Flush")
	}
	if err := acc.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := w.columns; len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("columns = %v, want [a c]", got)
	}
	if len(w.rows) != 2 {
		t.Errorf("rows written = %d, want 2", len(w.rows))
	}
	if w.closed != 1 {
		t.Errorf("writer closed %d times, want 1", w.closed)
	}
	if acc.Count() != 2 {
		t.Errorf("Count() = %d, want 2", acc.Count())
	}

	// Close after Flush is a no-op.
	if err := acc.Close(); err != nil {
		t.Errorf("Close after Flush failed: %v", err)
	}
	if w.closed != 1 {
		t.Errorf("writer closed %d times after Close, want 1", w.closed)
	}
}

func TestAccumulator_BufferedCloseWithoutFlushWritesNothing(t *testing.T) {
	var w *memWriter
	acc := NewAccumulator(Schema{Mode: ModeFixed, Columns: []string{"a"}}, recordingOpener(&w))
	_ = acc.Add(Row{"a": 1})

	if err := acc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w != nil {
		t.Error("aborted buffered run must not open an output")
	}
}

func TestAccumulator_FlushWriteError(t *testing.T) {
	w := &memWriter{failOn: 2}
	open := func([]string) (OutputWriter, error) { return w, nil }

	acc := NewAccumulator(Schema{Mode: ModeFixed, Columns: []string{"a"}}, open)
	_ = acc.Add(Row{"a": 1})
	_ = acc.Add(Row{"a": 2})

	if err := acc.Flush(); err == nil {
		t.Fatal("Flush should surface the write error")
	}
	if err := acc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.closed != 1 {
		t.Errorf("writer closed %d times, want 1", w.closed)
	}
}

func TestAccumulator_FixedWithTableWriter(t *testing.T) {
	var buf bytes.Buffer
	open := func(cols []string) (OutputWriter, error) { return NewTableWriter(&buf, cols, ','), nil }

	acc := NewAccumulator(Schema{Mode: ModeFixed, Columns: []string{"a", "b", "c"}}, open)
	_ = acc.Add(Row{"a": 1, "b": nil})
	_ = acc.Add(Row{"a": 2, "c": 3})
	if err := acc.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := buf.String(); got != "a,b,c\n1,,\n2,,3\n" {
		t.Errorf("output = %q", got)
	}
}

func TestAccumulator_AddAfterFlush(t *testing.T) {
	var w *memWriter
	acc := NewAccumulator(Schema{Mode: ModeFixed, Columns: []string{"a"}}, recordingOpener(&w))
	if err := acc.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(w.rows) != 0 || w.closed != 1 {
		t.Errorf("empty flush wrote %d rows, closed %d times", len(w.rows), w.closed)
	}
	if err := acc.Add(Row{"a": 1}); err == nil {
		t.Error("Add after Flush should fail")
	}
	if err := acc.Flush(); err != nil {
		t.Errorf("second Flush failed: %v", err)
	}
}
