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

// Package copier sequences a migration run: placeholder creation, content
// transfer, role acceptance, collection building and publication. It owns
// the failure bookkeeping — any per-entity operation that fails flips that
// entity's valid flag, appends a failure record, and the run moves on to the
// next entity. Only configuration errors and truly unexpected ones abort a
// run, and even then the catalog is saved first.
package copier

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/bookmap"
	"github.com/openstax/content-copy-tool/pkg/cnxclient"
	"github.com/openstax/content-copy-tool/pkg/config"
	"github.com/openstax/content-copy-tool/pkg/log"
)

// Failure reasons; these are the stable operation descriptions that end up
// in the failure report and are asserted on by tests.
const (
	opCreatePlaceholder    = "creating placeholder"
	opNoSourceID           = "module has no source id"
	opCopyingContent       = "copying content"
	opUpdatingRoles        = "updating roles"
	opCleaningZip          = "cleaning zip"
	opUploadingContent     = "uploading content"
	opPublishingModule     = "publishing module"
	opCreatingCollection   = "creating collection"
	opPopulatingCollection = "populating collection"
	opPublishingCollection = "publishing collection"
	opResolvingRoleUsers   = "resolving role users"
)

// CMS is the slice of the legacy-CMS client the orchestrator drives. It is
// an interface so phase logic can be tested against a stub server-side.
type CMS interface {
	CreateWorkgroup(ctx context.Context, title string) (id, url string, err error)
	CreateModule(ctx context.Context, title, workspaceURL string) (editURL string, err error)
	PublishModule(ctx context.Context, editURL string, isNew bool) (id, publishedURL string, err error)
	CreateCollection(ctx context.Context, title string) (*cnxclient.Collection, error)
	AddSubcollections(ctx context.Context, parent *cnxclient.Collection, titles []string) ([]*cnxclient.Collection, error)
	AddModuleToCollection(ctx context.Context, moduleID string, coll *cnxclient.Collection) error
	PublishCollection(ctx context.Context, coll *cnxclient.Collection) error
	AcceptPendingRoleRequests(ctx context.Context, creds config.Credentials) (int, error)
}

// Options selects which phases a run performs.
type Options struct {
	Workgroups        bool // create one workgroup per chapter
	Copy              bool // transfer module content source -> destination
	Roles             bool // rewrite ownership metadata while copying
	AcceptRoles       bool // accept pending collaboration requests afterwards
	Publish           bool // publish destination modules after copying
	Collections       bool // build the destination collection tree
	Units             bool // group chapter collections under unit collections
	PublishCollection bool // publish the root collection once built

	// DryRun short-circuits every remote-mutating call while keeping all
	// local bookkeeping, so operators can verify their input with zero side
	// effects.
	DryRun bool
}

// Failure is one entry of the user-facing error report.
type Failure struct {
	Entity    string
	Operation string
}

// Copier drives one migration run over a loaded catalog.
type Copier struct {
	Settings *config.Settings
	Bookmap  *bookmap.Bookmap
	CMS      CMS
	Console  *log.Logger
	Options  Options

	// WorkDir holds downloaded zip/xml/mpart temp files; artifacts of a
	// failed transfer stay here for manual recovery.
	WorkDir string

	// HTTP serves the plain downloads/uploads of the content-copy phase.
	HTTP *http.Client

	failures []Failure
}

// New assembles a Copier.
func New(settings *config.Settings, bm *bookmap.Bookmap, cms CMS, console *log.Logger, opts Options) *Copier {
	return &Copier{
		Settings: settings,
		Bookmap:  bm,
		CMS:      cms,
		Console:  console,
		Options:  opts,
		WorkDir:  ".",
		HTTP:     &http.Client{},
	}
}

// Failures returns the accumulated failure records in occurrence order.
func (c *Copier) Failures() []Failure {
	return c.failures
}

func (c *Copier) fail(entity, operation string) {
	c.failures = append(c.failures, Failure{Entity: entity, Operation: operation})
}

// Run performs the selected phases in order. Whatever happens, the catalog
// is saved (marked incomplete on the error path) and the failure report is
// emitted before Run returns.
func (c *Copier) Run(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			c.Bookmap.Incomplete = true
			c.Console.Errorf("run aborted: %v", err)
		}
		out, saveErr := c.Bookmap.Save(c.Options.Units)
		if saveErr != nil {
			c.Console.Errorf("saving copy map: %v", saveErr)
		} else {
			c.Console.Infof("see output copy map: %s", out)
		}
		c.report()
	}()

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Bool("placeholders", c.Bookmap.Placeholders).
		Bool("dry_run", c.Options.DryRun).
		Strs("chapters", c.Bookmap.Chapters).
		Msg("starting run")

	if c.Bookmap.Placeholders {
		if c.Options.Workgroups {
			if err := c.createWorkgroups(ctx); err != nil {
				return errors.Errorf("creating workgroups: %w", err)
			}
		}
		if err := c.createModules(ctx); err != nil {
			return errors.Errorf("creating modules: %w", err)
		}
	}

	if c.Options.Copy {
		if err := c.copyContent(ctx); err != nil {
			return errors.Errorf("copying content: %w", err)
		}
	}

	if c.Options.AcceptRoles && !c.Options.DryRun {
		c.acceptRoles(ctx)
	}

	if c.Options.Collections {
		c.buildCollections(ctx)
	}

	if c.Options.Publish {
		c.publishModules(ctx)
	}

	c.Console.Info("------- Process completed --------")
	return nil
}

// report renders the end-of-run failure list.
func (c *Copier) report() {
	entities := make([]string, len(c.failures))
	operations := make([]string, len(c.failures))
	for i, f := range c.failures {
		entities[i] = f.Entity
		operations[i] = f.Operation
	}
	c.Console.FailureReport(entities, operations)
}
