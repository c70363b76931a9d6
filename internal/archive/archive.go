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

package archive

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ManifestFile is the name of the manifest inside an archive directory.
const ManifestFile = "manifest.json"

// Entry describes one archived page.
type Entry struct {
	Page    int       `json:"page"`
	File    string    `json:"file"`
	SHA256  string    `json:"sha256"`
	Bytes   int       `json:"bytes"`
	Cursor  string    `json:"end_cursor,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Manifest lists the pages of an archive in page order.
type Manifest struct {
	Pages []Entry `json:"pages"`
}

// Dir is an archive directory.
type Dir struct {
	path string

	mu       sync.Mutex
	manifest Manifest
	now      func() time.Time
}

// New returns an archive rooted at path. The directory is created on the
// first SavePage.
func New(path string) *Dir {
	return &Dir{path: path, now: time.Now}
}

// Path returns the archive directory.
func (d *Dir) Path() string {
	return d.path
}

// PageFile returns the file name of a 1-based page number.
func PageFile(page int) string {
	return fmt.Sprintf("page_%03d.json", page)
}

// SavePage writes the raw body of page atomically and records it in the
// manifest. Valid JSON is indented by two spaces; anything else is stored
// verbatim. It returns the path of the page file.
func (d *Dir) SavePage(page int, raw []byte, cursor string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	data := buf.Bytes()

	name := PageFile(page)
	path := filepath.Join(d.path, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to archive page %d: %w", page, err)
	}

	sum := sha256.Sum256(data)
	d.manifest.Pages = append(d.manifest.Pages, Entry{
		Page:    page,
		File:    name,
		SHA256:  hex.EncodeToString(sum[:]),
		Bytes:   len(data),
		Cursor:  cursor,
		SavedAt: d.now().UTC(),
	})

	manifest, err := json.MarshalIndent(d.manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(d.path, ManifestFile), manifest); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Verify re-reads every page listed in the manifest at path and checks its
// checksum.
func Verify(path string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(path, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for _, e := range m.Pages {
		content, err := os.ReadFile(filepath.Join(path, e.File))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", e.Page, err)
		}
		sum := sha256.Sum256(content)
		if hex.EncodeToString(sum[:]) != e.SHA256 {
			return nil, fmt.Errorf("page %d: checksum mismatch", e.Page)
		}
	}
	return &m, nil
}

// writeFileAtomic writes data to a temporary file in the same directory,
// syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"

	f, err := os.OpenFile(tempFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
