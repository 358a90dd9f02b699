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

package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/fault"
)

// 🔌 Parser is the interface for settings-file parsers
type Parser interface {
	// Parse parses the settings from bytes
	Parse(ctx context.Context, data []byte) (*Settings, error)

	// CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// parsers is a list of available parsers
	parsers []Parser
)

// Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔑 Credentials is a username:password pair for HTTP basic auth
type Credentials struct {
	Username string
	Password string
}

// ParseCredentials splits a "username:password" string.
func ParseCredentials(s string) (Credentials, error) {
	username, password, ok := strings.Cut(s, ":")
	if !ok || username == "" {
		return Credentials{}, fault.Input("parsing credentials", "expected username:password, got %q", s)
	}
	return Credentials{Username: username, Password: password}, nil
}

func (c Credentials) String() string {
	return c.Username + ":" + c.Password
}

// 📑 Columns maps the tool's fields onto the input table's column names
type Columns struct {
	ChapterNumber        string `json:"chapter_number_column" yaml:"chapter_number_column" hcl:"chapter_number_column,optional"`
	ChapterTitle         string `json:"chapter_title_column" yaml:"chapter_title_column" hcl:"chapter_title_column,optional"`
	ModuleTitle          string `json:"module_title_column" yaml:"module_title_column" hcl:"module_title_column,optional"`
	UnitNumber           string `json:"unit_number_column,omitempty" yaml:"unit_number_column" hcl:"unit_number_column,optional"`
	UnitTitle            string `json:"unit_title_column,omitempty" yaml:"unit_title_column" hcl:"unit_title_column,optional"`
	SourceModuleID       string `json:"source_module_ID_column" yaml:"source_module_ID_column" hcl:"source_module_ID_column,optional"`
	SourceWorkgroup      string `json:"source_workgroup_column" yaml:"source_workgroup_column" hcl:"source_workgroup_column,optional"`
	DestinationModuleID  string `json:"destination_module_ID_column" yaml:"destination_module_ID_column" hcl:"destination_module_ID_column,optional"`
	DestinationWorkgroup string `json:"destination_workgroup_column" yaml:"destination_workgroup_column" hcl:"destination_workgroup_column,optional"`
}

// 📚 Settings represents the complete settings file
type Settings struct {
	Columns             Columns           `json:"columns" yaml:"columns" hcl:"columns,block"`
	SourceServer        string            `json:"source_server" yaml:"source_server" hcl:"source_server,optional"`
	DestinationServer   string            `json:"destination_server" yaml:"destination_server" hcl:"destination_server,optional"`
	Credentials         string            `json:"destination_credentials" yaml:"destination_credentials" hcl:"destination_credentials,optional"`
	Creators            []string          `json:"creators,omitempty" yaml:"creators" hcl:"creators,optional"`
	Maintainers         []string          `json:"maintainers,omitempty" yaml:"maintainers" hcl:"maintainers,optional"`
	Rightsholders       []string          `json:"rightsholders,omitempty" yaml:"rightsholders" hcl:"rightsholders,optional"`
	Users               map[string]string `json:"users,omitempty" yaml:"users" hcl:"users,optional"` // stored per-user passwords for role acceptance
	Logfile             string            `json:"logfile,omitempty" yaml:"logfile" hcl:"logfile,optional"`
	PathToTool          string            `json:"path_to_tool,omitempty" yaml:"path_to_tool" hcl:"path_to_tool,optional"`
	StripSectionNumbers string            `json:"strip_section_numbers,omitempty" yaml:"strip_section_numbers" hcl:"strip_section_numbers,optional"`
}

// Load loads the settings from a file
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading settings")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, fault.Input("loading settings", "no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing settings: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating settings: %w", err)
	}

	return cfg, nil
}

var schemeRe = regexp.MustCompile(`^https?://`)

// normalizeServer ensures a server address has http[s]:// prepended.
func normalizeServer(server string) string {
	if !schemeRe.MatchString(server) {
		return "http://" + server
	}
	return strings.TrimRight(server, "/")
}

// Validate checks required keys and normalizes server addresses. Missing
// required keys are configuration errors: the run must abort before any
// remote call is made.
func (s *Settings) Validate() error {
	if s.SourceServer == "" {
		return fault.Input("validating settings", "source_server is required")
	}
	if s.DestinationServer == "" {
		return fault.Input("validating settings", "destination_server is required")
	}
	if s.Credentials == "" {
		return fault.Input("validating settings", "destination_credentials is required")
	}
	if _, err := ParseCredentials(s.Credentials); err != nil {
		return err
	}
	if s.Columns.ModuleTitle == "" {
		return fault.Input("validating settings", "columns.module_title_column is required")
	}
	if s.Columns.ChapterNumber == "" {
		return fault.Input("validating settings", "columns.chapter_number_column is required")
	}

	s.SourceServer = normalizeServer(s.SourceServer)
	s.DestinationServer = normalizeServer(s.DestinationServer)
	return nil
}

// DestinationCredentials returns the parsed destination credentials. Validate
// must have succeeded first.
func (s *Settings) DestinationCredentials() Credentials {
	creds, _ := ParseCredentials(s.Credentials)
	return creds
}

// StripSections reports whether section-number stripping is enabled
// (default true, disabled only by an explicit "no"/"false").
func (s *Settings) StripSections() bool {
	switch strings.ToLower(s.StripSectionNumbers) {
	case "no", "false":
		return false
	}
	return true
}

// String returns a short operator-facing description of the settings
func (s *Settings) String() string {
	creds := s.DestinationCredentials()
	return fmt.Sprintf("%s -> %s (as %s)", s.SourceServer, s.DestinationServer, creds.Username)
}
