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
	"slices"

	"github.com/rs/zerolog"

	"github.com/openstax/content-copy-tool/pkg/log"
)

// createWorkgroups creates one destination workgroup per chapter. A failed
// workgroup removes its whole chapter from the run: the chapter leaves the
// active set and every module of that chapter is invalidated with a
// placeholder-creation failure.
func (c *Copier) createWorkgroups(ctx context.Context) error {
	c.Console.Phase("Creating workgroups")
	logger := zerolog.Ctx(ctx)

	// DropChapter mutates Workgroups, so iterate over a snapshot.
	for _, wg := range slices.Clone(c.Bookmap.Workgroups) {
		logger.Info().Str("title", wg.Title).Str("chapter", wg.ChapterNumber).Msg("creating workgroup")

		if c.Options.DryRun {
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     wg.Title,
				Operation: opCreatePlaceholder,
				Detail:    "dry run",
				Skipped:   true,
			})
			continue
		}

		id, url, err := c.CMS.CreateWorkgroup(ctx, wg.Title)
		if err != nil {
			logger.Error().Err(err).Str("title", wg.Title).Msg("workgroup creation failed")
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     wg.Title,
				Operation: opCreatePlaceholder,
				Detail:    err.Error(),
				Failed:    true,
			})
			c.fail(wg.Title, opCreatePlaceholder)
			for _, m := range c.Bookmap.Modules {
				if m.ChapterNumber == wg.ChapterNumber && m.Valid {
					m.Invalidate()
					c.fail(m.FullTitle(), opCreatePlaceholder)
				}
			}
			c.Bookmap.DropChapter(wg.ChapterNumber)
			continue
		}

		wg.ID = id
		wg.URL = url
		c.Console.LogEntityOperation(log.EntityOperation{
			Title:     wg.Title,
			Operation: opCreatePlaceholder,
			Detail:    id,
		})
	}
	return nil
}

// createModules creates and publishes an empty placeholder for every valid
// module in the active chapter set. Placeholders land in the chapter's
// workgroup when workgroups were created this run, otherwise in the
// destination user's personal workspace.
func (c *Copier) createModules(ctx context.Context) error {
	c.Console.Phase("Creating modules")
	logger := zerolog.Ctx(ctx)

	creds := c.Settings.DestinationCredentials()
	personal := c.Settings.DestinationServer + "/Members/" + creds.Username

	for _, m := range c.Bookmap.Modules {
		if !m.Valid || !c.Bookmap.ChapterActive(m.ChapterNumber) {
			continue
		}

		workspace := personal
		wg := c.Bookmap.WorkgroupFor(m.ChapterNumber)
		if c.Options.Workgroups && wg != nil && wg.URL != "" {
			workspace = wg.URL
		}

		logger.Info().Str("title", m.Title).Str("workspace", workspace).Msg("creating module")

		if c.Options.DryRun {
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opCreatePlaceholder,
				Detail:    "dry run",
				Skipped:   true,
			})
			continue
		}

		editURL, err := c.CMS.CreateModule(ctx, m.Title, workspace)
		if err == nil {
			var id string
			id, _, err = c.CMS.PublishModule(ctx, editURL, true)
			if err == nil {
				m.DestinationID = id
				m.DestinationWorkspaceURL = workspace
				if wg != nil {
					wg.AddModule(m)
				}
			}
		}
		if err != nil {
			logger.Error().Err(err).Str("title", m.Title).Msg("module placeholder failed")
			m.Invalidate()
			c.fail(m.FullTitle(), opCreatePlaceholder)
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opCreatePlaceholder,
				Detail:    err.Error(),
				Failed:    true,
			})
			continue
		}

		c.Console.LogEntityOperation(log.EntityOperation{
			Title:     m.FullTitle(),
			Operation: opCreatePlaceholder,
			Detail:    m.DestinationID,
		})
	}
	return nil
}
