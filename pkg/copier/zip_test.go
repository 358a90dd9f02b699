// Copyright 2026 the content-copy-tool authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package copier

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "m53341.zip")
	f, err := os.Create(path)
	require.NoError(t, err, "creating zip fixture")
	w := zip.NewWriter(f)
	for name, content := range entries {
		e, err := w.Create(name)
		require.NoError(t, err, "adding zip entry")
		_, err = e.Write([]byte(content))
		require.NoError(t, err, "writing zip entry")
	}
	require.NoError(t, w.Close(), "closing zip writer")
	require.NoError(t, f.Close(), "closing zip file")
	return path
}

func zipEntryNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err, "opening zip")
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCleanZip(t *testing.T) {
	path := writeZip(t, t.TempDir(), map[string]string{
		"m53341/index.cnxml":      "<document/>",
		"m53341/index.cnxml.html": "<html>rendered</html>",
		"m53341/figure1.png":      "png bytes",
	})

	require.NoError(t, CleanZip(path), "CleanZip should succeed")

	names := zipEntryNames(t, path)
	assert.NotContains(t, names, "m53341/index.cnxml.html", "the rendered index must be removed")
	assert.Contains(t, names, "m53341/index.cnxml", "the source document must survive")
	assert.Contains(t, names, "m53341/figure1.png", "other entries must survive")
}

func TestCleanZipDeepEntry(t *testing.T) {
	path := writeZip(t, t.TempDir(), map[string]string{
		"export/m53341/v1.3/index.cnxml.html": "<html/>",
		"export/m53341/v1.3/index.cnxml":      "<document/>",
	})

	require.NoError(t, CleanZip(path), "CleanZip should succeed regardless of the archive layout")
	assert.NotContains(t, zipEntryNames(t, path), "export/m53341/v1.3/index.cnxml.html", "the rendered index should be matched at any depth")
}

func TestCleanZipNoRenderedIndex(t *testing.T) {
	path := writeZip(t, t.TempDir(), map[string]string{
		"m53341/index.cnxml": "<document/>",
	})
	before, err := os.ReadFile(path)
	require.NoError(t, err, "reading fixture")

	require.NoError(t, CleanZip(path), "an archive without the entry is a no-op, not an error")

	after, err := os.ReadFile(path)
	require.NoError(t, err, "reading result")
	assert.Equal(t, before, after, "the archive must be untouched when there is nothing to remove")
}

func TestCleanZipMissingFile(t *testing.T) {
	err := CleanZip(filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err, "a missing archive should fail")
}
