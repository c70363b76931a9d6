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

// Package archive stores raw review pages exactly as they were received.
//
// Each page is written to its own file, page_001.json, page_002.json and so
// on, pretty-printed for human inspection. Every write is atomic, using a
// write-to-temp-and-rename pattern, so a crash never leaves a truncated page
// behind. A manifest.json next to the pages records the SHA256 checksum and
// continuation cursor of every page, which is enough to verify an archive or
// replay a run offline.
//
// Example usage:
//
//	dir := archive.New(filepath.Join(outDir, "tt0111161_raw_pages"))
//	path, err := dir.SavePage(1, page.Raw, page.EndCursor)
package archive
