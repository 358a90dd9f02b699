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

// Package bookmap holds the in-memory model of a book migration run: the
// modules parsed from the input table, the workgroups derived from its
// chapters, and the source-to-destination mapping that is persisted back to
// disk as the copy map.
package bookmap

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/config"
	"github.com/openstax/content-copy-tool/pkg/fault"
)

// Module is one unit of content being migrated. A module that fails any
// operation is flagged invalid and is excluded from every later phase; the
// flag only ever transitions true to false within a run.
type Module struct {
	Title         string
	SectionNumber string
	ChapterNumber string
	ChapterTitle  string
	UnitNumber    string
	UnitTitle     string

	SourceID           string
	SourceWorkspaceURL string

	DestinationID           string
	DestinationWorkspaceURL string

	Valid bool
}

// FullTitle returns the section-number-prefixed title used in persisted
// output.
func (m *Module) FullTitle() string {
	if m.SectionNumber != "" {
		return m.SectionNumber + " " + m.Title
	}
	return m.Title
}

// Invalidate permanently excludes the module from later phases.
func (m *Module) Invalidate() {
	m.Valid = false
}

// Workgroup is a destination-side container scoped to one chapter.
type Workgroup struct {
	Title         string
	ChapterNumber string
	ChapterTitle  string
	UnitNumber    string
	UnitTitle     string
	ID            string
	URL           string
	Modules       []*Module
}

// AddModule registers a successfully created module as a member.
func (w *Workgroup) AddModule(m *Module) {
	w.Modules = append(w.Modules, m)
}

// Bookmap is the whole-run catalog: every module from the input table, the
// synthesized workgroups, and the resolved chapter set. The chapter set is
// fixed at load time and is the single authority for which entities the run
// touches (workgroup-creation failures may still shrink it).
type Bookmap struct {
	Filename  string
	Booktitle string
	Delimiter rune
	Columns   config.Columns

	Chapters   []string
	Modules    []*Module
	Workgroups []*Workgroup

	// Placeholders is false when the input was a previously saved copy map,
	// in which case placeholder creation is skipped and the run resumes from
	// the recorded destination state.
	Placeholders bool

	// Incomplete marks a catalog saved on the fatal-error path.
	Incomplete bool
}

// Options controls catalog loading.
type Options struct {
	Chapters        []string // requested chapters; empty means all found
	ExcludeChapters []string
	Workgroups      bool // synthesize one workgroup per chapter
	StripSections   bool
}

// Load builds a Bookmap from a CSV/TSV input table or a previously saved
// copy map. A required column missing from the header entirely is an input
// error; optional columns absent from the header are tolerated, the
// corresponding module fields just stay empty.
func Load(path string, cols config.Columns, opts Options) (*Bookmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	bm := &Bookmap{
		Filename:     path,
		Booktitle:    BookTitle(path),
		Delimiter:    delimiterFor(path),
		Columns:      cols,
		Placeholders: isSpreadsheet(path),
	}

	r := csv.NewReader(f)
	r.Comma = bm.Delimiter
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Errorf("reading input table: %w", err)
	}
	if len(records) == 0 {
		return nil, fault.Input("loading bookmap", "input file %s has no header row", path)
	}

	header := newHeader(records[0])
	titleIdx, err := header.require(cols.ModuleTitle)
	if err != nil {
		return nil, err
	}
	chapterIdx, err := header.require(cols.ChapterNumber)
	if err != nil {
		return nil, err
	}

	for _, row := range records[1:] {
		title := header.get(row, titleIdx)
		if strings.TrimSpace(title) == "" {
			continue // rows without a module title are not modules
		}
		section := ""
		if opts.StripSections {
			section, title = StripSectionNumber(title)
		}
		m := &Module{
			Title:                   title,
			SectionNumber:           section,
			ChapterNumber:           header.get(row, chapterIdx),
			ChapterTitle:            header.lookup(row, cols.ChapterTitle),
			UnitNumber:              header.lookup(row, cols.UnitNumber),
			UnitTitle:               header.lookup(row, cols.UnitTitle),
			SourceID:                header.lookup(row, cols.SourceModuleID),
			SourceWorkspaceURL:      header.lookup(row, cols.SourceWorkgroup),
			DestinationID:           header.lookup(row, cols.DestinationModuleID),
			DestinationWorkspaceURL: header.lookup(row, cols.DestinationWorkgroup),
			Valid:                   true,
		}
		bm.Modules = append(bm.Modules, m)
	}

	bm.Chapters = resolveChapters(bm.Modules, opts.Chapters, opts.ExcludeChapters)

	if opts.Workgroups && bm.Placeholders {
		bm.synthesizeWorkgroups()
	}

	return bm, nil
}

// resolveChapters computes the active chapter set: the requested chapters if
// any, otherwise the distinct chapter numbers in row order, minus exclusions.
func resolveChapters(modules []*Module, requested, excluded []string) []string {
	chapters := requested
	if len(chapters) == 0 {
		seen := map[string]bool{}
		for _, m := range modules {
			if !seen[m.ChapterNumber] {
				seen[m.ChapterNumber] = true
				chapters = append(chapters, m.ChapterNumber)
			}
		}
	}
	if len(excluded) == 0 {
		return chapters
	}
	drop := map[string]bool{}
	for _, ch := range excluded {
		drop[ch] = true
	}
	kept := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		if !drop[ch] {
			kept = append(kept, ch)
		}
	}
	return kept
}

// synthesizeWorkgroups derives one workgroup per active chapter. The
// timestamp in the title keeps retries from colliding with the remains of a
// previous run on the destination server.
func (bm *Bookmap) synthesizeWorkgroups() {
	now := time.Now().Format("2006-01-02 15:04:05.000000")
	for _, chapter := range bm.Chapters {
		title, unitNumber, unitTitle := bm.chapterInfo(chapter)
		bm.Workgroups = append(bm.Workgroups, &Workgroup{
			Title:         fmt.Sprintf("%s - %s %s %s", bm.Booktitle, chapter, title, now),
			ChapterNumber: chapter,
			ChapterTitle:  title,
			UnitNumber:    unitNumber,
			UnitTitle:     unitTitle,
		})
	}
}

// chapterInfo returns the chapter title and unit info from the first module
// of the given chapter.
func (bm *Bookmap) chapterInfo(chapter string) (title, unitNumber, unitTitle string) {
	for _, m := range bm.Modules {
		if m.ChapterNumber == chapter {
			return m.ChapterTitle, m.UnitNumber, m.UnitTitle
		}
	}
	return "", "", ""
}

// WorkgroupFor returns the workgroup owning the given chapter, or nil.
func (bm *Bookmap) WorkgroupFor(chapter string) *Workgroup {
	for _, wg := range bm.Workgroups {
		if wg.ChapterNumber == chapter {
			return wg
		}
	}
	return nil
}

// ChapterActive reports whether the chapter is still in the active set.
func (bm *Bookmap) ChapterActive(chapter string) bool {
	for _, ch := range bm.Chapters {
		if ch == chapter {
			return true
		}
	}
	return false
}

// DropChapter removes a chapter from the active set and detaches its
// workgroup. Used when workgroup creation fails; the caller is responsible
// for invalidating the chapter's modules.
func (bm *Bookmap) DropChapter(chapter string) {
	kept := bm.Chapters[:0]
	for _, ch := range bm.Chapters {
		if ch != chapter {
			kept = append(kept, ch)
		}
	}
	bm.Chapters = kept

	wgs := bm.Workgroups[:0]
	for _, wg := range bm.Workgroups {
		if wg.ChapterNumber != chapter {
			wgs = append(wgs, wg)
		}
	}
	bm.Workgroups = wgs
}

// StripSectionNumber splits a leading numeric section token off a module
// title. Titles not starting with a digit are returned unchanged, which also
// makes the strip idempotent.
func StripSectionNumber(title string) (section, rest string) {
	if title == "" || !unicode.IsDigit(rune(title[0])) {
		return "", title
	}
	num, remainder, ok := strings.Cut(title, " ")
	if !ok {
		return "", title
	}
	return num, remainder
}

// BookTitle derives the book title from the input file name: the base name
// minus a .csv/.tsv extension. Copy-map inputs keep their full base name.
func BookTitle(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".csv", ".tsv"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

func delimiterFor(path string) rune {
	if strings.HasSuffix(path, ".tsv") {
		return '\t'
	}
	return ','
}

// isSpreadsheet reports whether the input is an original spreadsheet (true)
// or a previously saved copy map (false).
func isSpreadsheet(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, "OUT-") && !strings.HasSuffix(base, ".out")
}

// header maps column names to indices.
type header struct {
	index map[string]int
}

func newHeader(row []string) *header {
	h := &header{index: make(map[string]int, len(row))}
	for i, name := range row {
		h.index[strings.TrimSpace(name)] = i
	}
	return h
}

// require returns the index of a column that must exist in the schema.
func (h *header) require(name string) (int, error) {
	idx, ok := h.index[name]
	if !ok {
		return -1, fault.Input("loading bookmap", "required column %q not found in input header", name)
	}
	return idx, nil
}

// lookup returns the row value for a configured column, or "" when the
// column is not configured or not present in the schema.
func (h *header) lookup(row []string, name string) string {
	if name == "" {
		return ""
	}
	idx, ok := h.index[name]
	if !ok {
		return ""
	}
	return h.get(row, idx)
}

func (h *header) get(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
