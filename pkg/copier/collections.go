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
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openstax/content-copy-tool/pkg/bookmap"
	"github.com/openstax/content-copy-tool/pkg/cnxclient"
	"github.com/openstax/content-copy-tool/pkg/log"
)

// appendixUnit is the reserved unit title whose chapters nest directly under
// the book root instead of under a unit collection.
const appendixUnit = "APPENDIX"

// introChapter is the reserved chapter number for front matter; its
// collection also nests directly under the root.
const introChapter = "0"

// buildCollections creates the destination collection tree for the book:
// root, optional unit collections, one chapter collection per chapter, and
// finally the module references. A failure creating the root or the unit
// layer abandons the phase; chapter-level and module-level failures are
// recorded and the phase moves on.
func (c *Copier) buildCollections(ctx context.Context) {
	c.Console.Phase("Building collection")
	logger := zerolog.Ctx(ctx)

	if c.Options.DryRun {
		c.Console.LogEntityOperation(log.EntityOperation{
			Title:     c.Bookmap.Booktitle,
			Operation: opCreatingCollection,
			Detail:    "dry run",
			Skipped:   true,
		})
		return
	}

	root, err := c.CMS.CreateCollection(ctx, c.Bookmap.Booktitle)
	if err != nil {
		logger.Error().Err(err).Str("title", c.Bookmap.Booktitle).Msg("creating root collection")
		c.fail(c.Bookmap.Booktitle, opCreatingCollection)
		c.Console.LogEntityOperation(log.EntityOperation{
			Title:     c.Bookmap.Booktitle,
			Operation: opCreatingCollection,
			Detail:    err.Error(),
			Failed:    true,
		})
		return
	}
	c.Console.LogEntityOperation(log.EntityOperation{
		Title:     c.Bookmap.Booktitle,
		Operation: opCreatingCollection,
		Detail:    root.ID,
	})

	unitColls := map[string]*cnxclient.Collection{}
	if c.Options.Units {
		numbers, titles := c.unitTitles()
		if len(titles) > 0 {
			subs, err := c.CMS.AddSubcollections(ctx, root, titles)
			if err != nil || len(subs) != len(titles) {
				logger.Error().Err(err).Msg("creating unit collections")
				c.fail(c.Bookmap.Booktitle, opCreatingCollection)
				c.Console.LogEntityOperation(log.EntityOperation{
					Title:     c.Bookmap.Booktitle,
					Operation: opCreatingCollection,
					Detail:    "creating unit collections failed",
					Failed:    true,
				})
				return
			}
			for i, n := range numbers {
				unitColls[n] = subs[i]
			}
		}
	}

	for _, wg := range c.chapterGroups() {
		parent := root
		if c.Options.Units && wg.ChapterNumber != introChapter && wg.UnitTitle != appendixUnit {
			if u, ok := unitColls[wg.UnitNumber]; ok {
				parent = u
			}
		}

		title := strings.TrimSpace(wg.ChapterNumber + " " + wg.ChapterTitle)
		subs, err := c.CMS.AddSubcollections(ctx, parent, []string{title})
		if err != nil || len(subs) == 0 {
			logger.Error().Err(err).Str("chapter", wg.ChapterNumber).Msg("creating chapter collection")
			c.fail(title, opCreatingCollection)
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     title,
				Operation: opCreatingCollection,
				Detail:    "creating chapter collection failed",
				Failed:    true,
			})
			continue
		}
		leaf := subs[0]

		for _, m := range wg.Modules {
			if !m.Valid {
				continue
			}
			if err := c.CMS.AddModuleToCollection(ctx, m.DestinationID, leaf); err != nil {
				// Content already landed; only the grouping step failed.
				logger.Warn().Err(err).Str("title", m.Title).Msg("adding module to collection")
				c.fail(m.FullTitle(), opPopulatingCollection)
				c.Console.LogEntityOperation(log.EntityOperation{
					Title:     m.FullTitle(),
					Operation: opPopulatingCollection,
					Detail:    err.Error(),
					Failed:    true,
				})
				continue
			}
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opPopulatingCollection,
				Detail:    leaf.ID,
			})
		}
	}

	if c.Options.PublishCollection {
		if err := c.CMS.PublishCollection(ctx, root); err != nil {
			logger.Error().Err(err).Msg("publishing collection")
			c.fail(root.Title, opPublishingCollection)
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     root.Title,
				Operation: opPublishingCollection,
				Detail:    err.Error(),
				Failed:    true,
			})
			return
		}
		c.Console.LogEntityOperation(log.EntityOperation{
			Title:     root.Title,
			Operation: opPublishingCollection,
			Detail:    root.ID,
		})
	}
}

// unitTitles returns the distinct non-appendix unit numbers of the active
// chapter set, sorted numerically, alongside the collection titles to create
// for them.
func (c *Copier) unitTitles() (numbers, titles []string) {
	type unit struct{ number, title string }
	seen := map[string]bool{}
	var units []unit
	for _, m := range c.Bookmap.Modules {
		if !c.Bookmap.ChapterActive(m.ChapterNumber) {
			continue
		}
		if m.UnitTitle == appendixUnit || strings.TrimSpace(m.UnitNumber) == "" {
			continue
		}
		if seen[m.UnitNumber] {
			continue
		}
		seen[m.UnitNumber] = true
		units = append(units, unit{m.UnitNumber, m.UnitTitle})
	}

	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			if unitLess(units[j].number, units[i].number) {
				units[i], units[j] = units[j], units[i]
			}
		}
	}

	for _, u := range units {
		numbers = append(numbers, u.number)
		titles = append(titles, strings.TrimSpace(u.number+" "+u.title))
	}
	return numbers, titles
}

func unitLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// chapterGroups yields one group per active chapter. Workgroups created this
// run already hold their member modules; a run resumed from a copy map has
// none, so groups are synthesized from the module list in row order.
func (c *Copier) chapterGroups() []*bookmap.Workgroup {
	if len(c.Bookmap.Workgroups) > 0 {
		return c.Bookmap.Workgroups
	}

	byChapter := map[string]*bookmap.Workgroup{}
	var groups []*bookmap.Workgroup
	for _, m := range c.Bookmap.Modules {
		if !m.Valid || !c.Bookmap.ChapterActive(m.ChapterNumber) {
			continue
		}
		wg, ok := byChapter[m.ChapterNumber]
		if !ok {
			wg = &bookmap.Workgroup{
				ChapterNumber: m.ChapterNumber,
				ChapterTitle:  m.ChapterTitle,
				UnitNumber:    m.UnitNumber,
				UnitTitle:     m.UnitTitle,
			}
			byChapter[m.ChapterNumber] = wg
			groups = append(groups, wg)
		}
		wg.AddModule(m)
	}
	return groups
}
