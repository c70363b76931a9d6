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
	"errors"
	"fmt"
)

// Opener creates the destination writer once the columns are known.
type Opener func(columns []string) (OutputWriter, error)

// Accumulator collects the rows of a single output artifact. Rows are held in
// memory and only written by Flush, once the schema can be resolved against
// every row.
type Accumulator struct {
	schema  Schema
	open    Opener
	rows    []Row
	writer  OutputWriter
	columns []string
	flushed bool
}

// NewAccumulator creates an Accumulator that opens its writer on Flush.
func NewAccumulator(schema Schema, open Opener) *Accumulator {
	return &Accumulator{schema: schema, open: open}
}

// Add accepts one row.
func (a *Accumulator) Add(row Row) error {
	if a.flushed {
		return errors.New("accumulator already flushed")
	}
	a.rows = append(a.rows, row)
	return nil
}

// Flush writes the buffered rows under the resolved schema and closes the
// writer. Close alone never writes anything, so an aborted run leaves no
// output behind.
func (a *Accumulator) Flush() error {
	if a.flushed {
		return nil
	}
	a.flushed = true

	a.columns = a.schema.Resolve(a.rows)
	w, err := a.open(a.columns)
	if err != nil {
		return err
	}
	a.writer = w
	for i, row := range a.rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	a.writer = nil
	return w.Close()
}

// Close releases the writer if Flush failed part way. It is safe to call
// after Flush.
func (a *Accumulator) Close() error {
	if a.writer == nil {
		return nil
	}
	w := a.writer
	a.writer = nil
	return w.Close()
}

// Count returns the number of rows accepted so far.
func (a *Accumulator) Count() int {
	return len(a.rows)
}

// Columns returns the columns of the written artifact. It is only known
// after Flush.
func (a *Accumulator) Columns() []string {
	return a.columns
}
