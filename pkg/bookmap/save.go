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

package bookmap

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

const (
	defaultUnitNumberColumn = "Unit Number"
	defaultUnitTitleColumn  = "Unit Title"
)

// Save writes the copy map: one row per module in catalog order, using the
// configured column names as the header and the input file's delimiter. The
// file is written next to the input, named OUT-<input name>, or
// OUT-INCOMPLETE-<input name> when the catalog is marked incomplete so a
// partial map is never mistaken for a finished run's resumable input.
func (bm *Bookmap) Save(includeUnits bool) (string, error) {
	prefix := "OUT-"
	if bm.Incomplete {
		prefix = "OUT-INCOMPLETE-"
	}
	dir, base := filepath.Dir(bm.Filename), filepath.Base(bm.Filename)
	out := filepath.Join(dir, prefix+base)

	f, err := os.Create(out)
	if err != nil {
		return "", errors.Errorf("creating copy map: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = bm.Delimiter

	cols := bm.Columns
	headerRow := []string{
		cols.ChapterNumber,
		cols.ChapterTitle,
		cols.ModuleTitle,
		cols.SourceModuleID,
		cols.SourceWorkgroup,
		cols.DestinationModuleID,
		cols.DestinationWorkgroup,
	}
	if includeUnits {
		headerRow = append(headerRow, unitColumn(cols.UnitNumber, defaultUnitNumberColumn), unitColumn(cols.UnitTitle, defaultUnitTitleColumn))
	}
	if err := w.Write(headerRow); err != nil {
		return "", errors.Errorf("writing copy map header: %w", err)
	}

	for _, m := range bm.Modules {
		row := []string{
			m.ChapterNumber,
			m.ChapterTitle,
			m.FullTitle(),
			m.SourceID,
			m.SourceWorkspaceURL,
			m.DestinationID,
			m.DestinationWorkspaceURL,
		}
		if includeUnits {
			row = append(row, m.UnitNumber, m.UnitTitle)
		}
		if err := w.Write(row); err != nil {
			return "", errors.Errorf("writing copy map row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Errorf("flushing copy map: %w", err)
	}
	return out, nil
}

func unitColumn(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
