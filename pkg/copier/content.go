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
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openstax/content-copy-tool/pkg/bookmap"
	"github.com/openstax/content-copy-tool/pkg/log"
	"github.com/openstax/content-copy-tool/pkg/roles"
)

// copyContent transfers each valid module's content from the source server
// into its destination placeholder: export zip + deposit receipt down, role
// rewrite, zip cleanup, multipart upload up. Per-module failures invalidate
// the module and leave its temp files on disk for inspection.
func (c *Copier) copyContent(ctx context.Context) error {
	c.Console.Phase("Copying content")
	logger := zerolog.Ctx(ctx)

	var rewriter *roles.Rewriter
	if c.Options.Roles {
		rewriter = roles.NewRewriter(c.Settings.Creators, c.Settings.Maintainers, c.Settings.Rightsholders)
	}

	for _, m := range c.Bookmap.Modules {
		if !m.Valid || !c.Bookmap.ChapterActive(m.ChapterNumber) {
			continue
		}

		if strings.TrimSpace(m.SourceID) == "" {
			logger.Warn().Str("title", m.Title).Msg("module has no source id")
			m.Invalidate()
			c.fail(m.FullTitle(), opNoSourceID)
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opCopyingContent,
				Detail:    opNoSourceID,
				Failed:    true,
			})
			continue
		}

		if c.Options.DryRun {
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opCopyingContent,
				Detail:    "dry run",
				Skipped:   true,
			})
			continue
		}

		c.copyModule(ctx, m, rewriter)
	}
	return nil
}

// copyModule performs one module's transfer. Any failed step records a
// failure and returns; temp files are removed only once the upload has been
// accepted.
func (c *Copier) copyModule(ctx context.Context, m *bookmap.Module, rewriter *roles.Rewriter) {
	logger := zerolog.Ctx(ctx)
	sourceID := strings.TrimSpace(m.SourceID)

	zipPath := filepath.Join(c.WorkDir, sourceID+".zip")
	xmlPath := filepath.Join(c.WorkDir, sourceID+".xml")

	logger.Info().
		Str("title", m.Title).
		Str("source_id", sourceID).
		Str("destination_id", m.DestinationID).
		Msg("copying module content")

	base := c.Settings.SourceServer + "/content/" + sourceID + "/latest/"
	if err := c.download(ctx, base+"module_export?format=zip", zipPath); err != nil {
		c.moduleFailed(m, opCopyingContent, err)
		return
	}
	if err := c.download(ctx, base+"rhaptos-deposit-receipt", xmlPath); err != nil {
		c.moduleFailed(m, opCopyingContent, err)
		return
	}

	if rewriter != nil {
		if err := rewriter.Rewrite(xmlPath); err != nil {
			c.moduleFailed(m, opUpdatingRoles, err)
			return
		}
	}

	if err := CleanZip(zipPath); err != nil {
		c.moduleFailed(m, opCleaningZip, err)
		return
	}

	dest := strings.TrimRight(m.DestinationWorkspaceURL, "/") + "/" + m.DestinationID + "/sword"
	mpartPath, err := c.upload(ctx, xmlPath, zipPath, dest)
	if err != nil {
		c.moduleFailed(m, opUploadingContent, err)
		return
	}

	// Only a fully accepted upload cleans up after itself.
	for _, p := range []string{zipPath, xmlPath, mpartPath} {
		if err := os.Remove(p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("removing temp file")
		}
	}

	c.Console.LogEntityOperation(log.EntityOperation{
		Title:     m.FullTitle(),
		Operation: opCopyingContent,
		Detail:    m.DestinationID,
	})
}

func (c *Copier) moduleFailed(m *bookmap.Module, operation string, err error) {
	m.Invalidate()
	c.fail(m.FullTitle(), operation)
	c.Console.LogEntityOperation(log.EntityOperation{
		Title:     m.FullTitle(),
		Operation: operation,
		Detail:    err.Error(),
		Failed:    true,
	})
}

// acceptRoles accepts every pending collaboration request for every distinct
// user named in the configured role lists. Acceptance is best effort: a user
// whose requests cannot be fetched or accepted is logged and skipped.
func (c *Copier) acceptRoles(ctx context.Context) {
	c.Console.Phase("Accepting role requests")
	logger := zerolog.Ctx(ctx)

	users, err := roles.UsersOfRoles(c.Settings)
	if err != nil {
		logger.Error().Err(err).Msg("resolving role users")
		c.Console.Errorf("accepting roles: %v", err)
		c.fail("role acceptance", opResolvingRoleUsers)
		return
	}

	for _, user := range users {
		n, err := c.CMS.AcceptPendingRoleRequests(ctx, user)
		if err != nil {
			logger.Warn().Err(err).Str("user", user.Username).Msg("accepting role requests")
			c.Console.Warningf("accepting role requests for %s: %v", user.Username, err)
			continue
		}
		c.Console.Infof("accepted %d pending role request(s) for %s", n, user.Username)
	}
}

// publishModules publishes every valid destination module of the active
// chapter set.
func (c *Copier) publishModules(ctx context.Context) {
	c.Console.Phase("Publishing modules")
	logger := zerolog.Ctx(ctx)

	for _, m := range c.Bookmap.Modules {
		if !m.Valid || !c.Bookmap.ChapterActive(m.ChapterNumber) {
			continue
		}

		if c.Options.DryRun {
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opPublishingModule,
				Detail:    "dry run",
				Skipped:   true,
			})
			continue
		}

		editURL := strings.TrimRight(m.DestinationWorkspaceURL, "/") + "/" + m.DestinationID + "/"
		id, _, err := c.CMS.PublishModule(ctx, editURL, false)
		if err != nil {
			logger.Error().Err(err).Str("title", m.Title).Msg("publishing module")
			m.Invalidate()
			c.fail(m.FullTitle(), opPublishingModule)
			c.Console.LogEntityOperation(log.EntityOperation{
				Title:     m.FullTitle(),
				Operation: opPublishingModule,
				Detail:    err.Error(),
				Failed:    true,
			})
			continue
		}

		c.Console.LogEntityOperation(log.EntityOperation{
			Title:     m.FullTitle(),
			Operation: opPublishingModule,
			Detail:    id,
		})
	}
}
