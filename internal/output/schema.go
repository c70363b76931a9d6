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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Mode selects how output columns are chosen.
type Mode string

const (
	// ModeFixed always emits the configured columns.
	ModeFixed Mode = "fixed"
	// ModeDynamic emits only columns with at least one non-nil value.
	ModeDynamic Mode = "dynamic"
)

// Schema describes the output columns.
type Schema struct {
	Mode    Mode
	Columns []string
}

// Resolve returns the header for rows.
func (s Schema) Resolve(rows []Row) []string {
	if s.Mode == ModeDynamic {
		return DynamicColumns(rows)
	}
	return s.Columns
}

// DynamicColumns returns, sorted by name, every column that held a non-nil
// value in at least one row.
func DynamicColumns(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k, v := range row {
			if v != nil {
				seen[k] = struct{}{}
			}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
	FormatNDJSON Format = "ndjson"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatTSV, FormatNDJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want csv, tsv or ndjson)", s)
}

// Extension returns the file extension for the format, without a dot.
func (f Format) Extension() string {
	return string(f)
}

// Open creates the file at path, and any missing parent directories, and
// returns a writer for format.
func Open(path string, format Format, columns []string) (OutputWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		w   OutputWriter
		err error
	)
	switch format {
	case FormatCSV, FormatTSV:
		comma := ','
		if format == FormatTSV {
			comma = '\t'
		}
		var tw *TableWriter
		if tw, err = NewTableFileWriter(path, columns, comma); err == nil {
			w = tw
		}
	case FormatNDJSON:
		var nw *Writer
		if nw, err = NewFileWriter(path, columns); err == nil {
			w = nw
		}
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
