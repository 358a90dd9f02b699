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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/bookmap"
	"github.com/openstax/content-copy-tool/pkg/cnxclient"
	"github.com/openstax/content-copy-tool/pkg/config"
	"github.com/openstax/content-copy-tool/pkg/copier"
	"github.com/openstax/content-copy-tool/pkg/fault"
	"github.com/openstax/content-copy-tool/pkg/log"
)

type rootFlags struct {
	settingsFile string
	inputFile    string

	workgroups        bool
	copyContent       bool
	roles             bool
	acceptRoles       bool
	publish           bool
	collections       bool
	units             bool
	publishCollection bool

	chapters        []string
	excludeChapters []string

	dryRun bool
	yes    bool
	debug  bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "cct",
		Short:         "copy book content between legacy CNX servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.settingsFile, "settings", "s", "", "settings file (json/yaml/hcl)")
	cmd.Flags().StringVarP(&flags.inputFile, "input-file", "i", "", "input spreadsheet (csv/tsv) or saved copy map")
	cmd.Flags().BoolVarP(&flags.workgroups, "workgroups", "w", false, "create one workgroup per chapter")
	cmd.Flags().BoolVarP(&flags.copyContent, "copy", "c", false, "copy module content from the source server")
	cmd.Flags().BoolVarP(&flags.roles, "roles", "r", false, "rewrite creator/maintainer/rightsholder metadata while copying")
	cmd.Flags().BoolVar(&flags.acceptRoles, "accept-roles", false, "accept pending role requests for configured users")
	cmd.Flags().BoolVarP(&flags.publish, "publish", "p", false, "publish destination modules after copying")
	cmd.Flags().BoolVar(&flags.collections, "collections", false, "build the destination collection tree")
	cmd.Flags().BoolVar(&flags.units, "units", false, "group chapter collections under unit collections")
	cmd.Flags().BoolVar(&flags.publishCollection, "publish-collection", false, "publish the collection once built")
	cmd.Flags().StringSliceVarP(&flags.chapters, "chapters", "a", nil, "restrict the run to these chapter numbers")
	cmd.Flags().StringSliceVarP(&flags.excludeChapters, "exclude-chapters", "x", nil, "exclude these chapter numbers")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "perform no remote changes, only local bookkeeping")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the pre-run confirmation")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")

	cmd.MarkFlagRequired("settings")
	cmd.MarkFlagRequired("input-file")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func run(ctx context.Context, flags *rootFlags) error {
	if flags.roles && !flags.copyContent {
		return fault.Input("validating flags", "--roles requires --copy")
	}

	ctx, console := setupLogging(ctx, flags)

	settings, err := config.Load(ctx, flags.settingsFile)
	if err != nil {
		return errors.Errorf("loading settings: %w", err)
	}

	bm, err := bookmap.Load(flags.inputFile, settings.Columns, bookmap.Options{
		Chapters:        flags.chapters,
		ExcludeChapters: flags.excludeChapters,
		Workgroups:      flags.workgroups,
		StripSections:   settings.StripSections(),
	})
	if err != nil {
		return errors.Errorf("loading input file: %w", err)
	}

	if bm.Placeholders && flags.publish && !flags.copyContent {
		return fault.Input("validating flags", "publishing a spreadsheet-sourced run requires --copy")
	}

	// The structured stream starts on stderr; redirect it to the configured
	// logfile now that settings are known.
	if settings.Logfile != "" {
		f, err := os.OpenFile(settings.Logfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Errorf("opening logfile %s: %w", settings.Logfile, err)
		}
		defer f.Close()
		console = log.New(os.Stdout, f, logLevel(flags))
		ctx = console.Zerolog().WithContext(ctx)
	}

	summarize(console, settings, bm, flags)

	if flags.acceptRoles {
		console.Warning("--accept-roles accepts ALL pending role requests for the configured users, " +
			"including requests unrelated to this run")
	}

	if !flags.yes {
		ok, err := pterm.DefaultInteractiveConfirm.
			WithDefaultText("Proceed with this run?").
			Show()
		if err != nil {
			return errors.Errorf("reading confirmation: %w", err)
		}
		if !ok {
			console.Info("aborted by operator")
			return nil
		}
	}

	client := cnxclient.New(settings.DestinationServer, settings.DestinationCredentials())
	c := copier.New(settings, bm, client, console, copier.Options{
		Workgroups:        flags.workgroups,
		Copy:              flags.copyContent,
		Roles:             flags.roles,
		AcceptRoles:       flags.acceptRoles,
		Publish:           flags.publish,
		Collections:       flags.collections,
		Units:             flags.units,
		PublishCollection: flags.publishCollection,
		DryRun:            flags.dryRun,
	})

	return c.Run(ctx)
}

// setupLogging wires the operator console and the structured stream.
func setupLogging(ctx context.Context, flags *rootFlags) (context.Context, *log.Logger) {
	console := log.New(os.Stdout, os.Stderr, logLevel(flags))
	ctx = console.Zerolog().WithContext(ctx)
	return ctx, console
}

func logLevel(flags *rootFlags) zerolog.Level {
	if flags.debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// summarize renders the pre-run summary the operator confirms against.
func summarize(console *log.Logger, settings *config.Settings, bm *bookmap.Bookmap, flags *rootFlags) {
	console.Header("Run summary")
	console.Summary("Input file", bm.Filename)
	console.Summary("Book title", bm.Booktitle)
	console.Summary("Source server", settings.SourceServer)
	console.Summary("Destination server", settings.DestinationServer)
	console.Summary("Chapters", strings.Join(bm.Chapters, ", "))
	console.Summary("Modules", fmt.Sprintf("%d", len(bm.Modules)))

	var phases []string
	if bm.Placeholders && flags.workgroups {
		phases = append(phases, "workgroups")
	}
	if bm.Placeholders {
		phases = append(phases, "placeholders")
	}
	if flags.copyContent {
		phases = append(phases, "copy")
	}
	if flags.roles {
		phases = append(phases, "roles")
	}
	if flags.acceptRoles {
		phases = append(phases, "accept-roles")
	}
	if flags.collections {
		phases = append(phases, "collections")
	}
	if flags.publish {
		phases = append(phases, "publish")
	}
	if flags.publishCollection {
		phases = append(phases, "publish-collection")
	}
	console.Summary("Phases", strings.Join(phases, ", "))
	if flags.dryRun {
		console.Summary("Mode", "DRY RUN (no remote changes)")
	}
}
