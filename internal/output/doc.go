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

// Package output writes review rows as delimited tables (CSV, TSV) or NDJSON.
//
// Columns come from a Schema. In fixed mode every listed column is emitted,
// even when no row ever populates it. In dynamic mode the columns are the
// sorted names that held a non-nil value in at least one row, so the header
// can only be computed after every row is known.
//
// The Accumulator sits between the fetch loop and a writer. It buffers rows
// until Flush, so nothing is written for a run that aborts.
//
// Example usage:
//
//	schema := output.Schema{Mode: output.ModeFixed, Columns: []string{"review_id", "author"}}
//	acc := output.NewAccumulator(schema, func(cols []string) (output.OutputWriter, error) {
//	    return output.Open("tt0111161_all_reviews.csv", output.FormatCSV, cols)
//	})
//	defer acc.Close()
//
//	_ = acc.Add(output.Row{"review_id": "rw1", "author": "ann"})
//	if err := acc.Flush(); err != nil {
//	    log.Fatal(err)
//	}
package output
