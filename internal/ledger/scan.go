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

package ledger

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// IDColumn is the column holding review identifiers in output artifacts.
const IDColumn = "review_id"

// scanWorkers bounds the files read concurrently.
const scanWorkers = 4

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 16 * 1024 * 1024

// FindOutputs lists prior artifacts in dir whose name starts with baseName
// and ends in .csv, .tsv or .ndjson, sorted by name. A missing dir yields
// no artifacts.
func FindOutputs(dir, baseName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, baseName) {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".tsv", ".ndjson":
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanOutputs returns every non-empty review_id found in the prior artifacts
// of dir/baseName, in file-name order. Files are read concurrently. Tables
// without a review_id column contribute nothing.
func ScanOutputs(ctx context.Context, dir, baseName string) ([]string, error) {
	paths, err := FindOutputs(dir, baseName)
	if err != nil || len(paths) == 0 {
		return nil, err
	}

	results := make([][]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids, err := ReadIDs(path)
			if err != nil {
				return err
			}
			results[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ids []string
	for _, r := range results {
		ids = append(ids, r...)
	}
	return ids, nil
}

// ReadIDs reads the review identifiers of one artifact, choosing the parser
// from the file extension.
func ReadIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		ids, err = readTableIDs(f, '\t')
	case ".ndjson":
		ids, err = readNDJSONIDs(f)
	default:
		ids, err = readTableIDs(f, ',')
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ids, nil
}

func readTableIDs(r io.Reader, comma rune) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	col := -1
	for i, name := range header {
		if strings.TrimPrefix(name, "\ufeff") == IDColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, nil
	}

	var ids []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		if col < len(row) && row[col] != "" {
			ids = append(ids, row[col])
		}
	}
}

func readNDJSONIDs(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var ids []string
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw, ok := obj[IDColumn]
		if !ok {
			continue
		}
		var id any
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		switch v := id.(type) {
		case string:
			if v != "" {
				ids = append(ids, v)
			}
		case float64:
			ids = append(ids, string(raw))
		}
	}
	return ids, sc.Err()
}
