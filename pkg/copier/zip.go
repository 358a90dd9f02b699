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
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// renderedIndexPattern matches the server-rendered HTML the export zip
// carries at any depth; the destination regenerates it, so uploading it back
// breaks publication.
const renderedIndexPattern = "**/index.cnxml.html"

// CleanZip rewrites the archive at path without any rendered index entries.
// An archive that never contained one is left untouched.
func CleanZip(path string) error {
	src, err := zip.OpenReader(path)
	if err != nil {
		return errors.Errorf("opening zip %s: %w", path, err)
	}
	defer src.Close()

	drop := map[string]bool{}
	for _, f := range src.File {
		ok, err := doublestar.Match(renderedIndexPattern, f.Name)
		if err != nil {
			return errors.Errorf("matching zip entry %s: %w", f.Name, err)
		}
		if ok {
			drop[f.Name] = true
		}
	}
	if len(drop) == 0 {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".clean-*")
	if err != nil {
		return errors.Errorf("creating temp zip: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := zip.NewWriter(tmp)
	for _, f := range src.File {
		if drop[f.Name] {
			continue
		}
		if err := copyZipEntry(w, f); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return errors.Errorf("finalizing cleaned zip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temp zip: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Errorf("replacing zip %s: %w", path, err)
	}
	return nil
}

func copyZipEntry(w *zip.Writer, f *zip.File) error {
	header := f.FileHeader
	dst, err := w.CreateHeader(&header)
	if err != nil {
		return errors.Errorf("recreating zip entry %s: %w", f.Name, err)
	}
	r, err := f.Open()
	if err != nil {
		return errors.Errorf("reading zip entry %s: %w", f.Name, err)
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return errors.Errorf("copying zip entry %s: %w", f.Name, err)
	}
	return nil
}
