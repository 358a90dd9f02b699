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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstax/content-copy-tool/pkg/fault"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		content     string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Settings)
	}{
		{
			name:     "valid_json",
			filename: "settings.json",
			content: `{
  "columns": {
    "chapter_number_column": "Chapter Number",
    "chapter_title_column": "Chapter Title",
    "module_title_column": "Module Title",
    "source_module_ID_column": "Source Module ID"
  },
  "source_server": "legacy.cnx.org",
  "destination_server": "https://qa.cnx.org/",
  "destination_credentials": "migrator:hunter2",
  "creators": ["user1", "user2"],
  "users": {"user1": "pw1", "user2": "pw2"},
  "logfile": "tool.log"
}`,
			check: func(t *testing.T, cfg *Settings) {
				assert.Equal(t, "http://legacy.cnx.org", cfg.SourceServer, "schemeless server should get http prepended")
				assert.Equal(t, "https://qa.cnx.org", cfg.DestinationServer, "trailing slash should be trimmed")
				assert.Equal(t, "Chapter Number", cfg.Columns.ChapterNumber, "chapter number column should match")
				assert.Equal(t, "Module Title", cfg.Columns.ModuleTitle, "module title column should match")
				assert.Equal(t, Credentials{Username: "migrator", Password: "hunter2"}, cfg.DestinationCredentials(), "credentials should parse")
				assert.Equal(t, []string{"user1", "user2"}, cfg.Creators, "creators should match")
				assert.Equal(t, "pw2", cfg.Users["user2"], "stored user password should match")
			},
		},
		{
			name:     "valid_yaml",
			filename: "settings.yaml",
			content: `
columns:
  chapter_number_column: Chapter Number
  module_title_column: Module Title
source_server: legacy.cnx.org
destination_server: qa.cnx.org
destination_credentials: migrator:hunter2
strip_section_numbers: "no"
`,
			check: func(t *testing.T, cfg *Settings) {
				assert.Equal(t, "http://qa.cnx.org", cfg.DestinationServer, "yaml settings should normalize servers too")
				assert.False(t, cfg.StripSections(), "strip_section_numbers: no should disable stripping")
			},
		},
		{
			name:     "valid_hcl",
			filename: "settings.hcl",
			content: `
source_server          = "legacy.cnx.org"
destination_server      = "qa.cnx.org"
destination_credentials = "migrator:hunter2"

columns {
  chapter_number_column = "Chapter Number"
  module_title_column   = "Module Title"
}

users {
  user1 = "pw1"
}
`,
			check: func(t *testing.T, cfg *Settings) {
				assert.Equal(t, "Module Title", cfg.Columns.ModuleTitle, "hcl columns block should decode")
				assert.Equal(t, "pw1", cfg.Users["user1"], "hcl users block should decode into the map")
			},
		},
		{
			name:     "hcl_without_users_block",
			filename: "settings.hcl",
			content: `
source_server           = "legacy.cnx.org"
destination_server      = "qa.cnx.org"
destination_credentials = "migrator:hunter2"

columns {
  chapter_number_column = "Chapter Number"
  module_title_column   = "Module Title"
}
`,
			check: func(t *testing.T, cfg *Settings) {
				assert.Empty(t, cfg.Users, "users block is optional in hcl settings")
				assert.Equal(t, "http://legacy.cnx.org", cfg.SourceServer, "hcl should still decode the rest")
			},
		},
		{
			name:        "missing_source_server",
			filename:    "settings.json",
			content:     `{"destination_server": "qa.cnx.org", "destination_credentials": "a:b", "columns": {"chapter_number_column": "c", "module_title_column": "m"}}`,
			wantErr:     true,
			errContains: "source_server is required",
		},
		{
			name:        "missing_columns",
			filename:    "settings.json",
			content:     `{"source_server": "a", "destination_server": "b", "destination_credentials": "a:b"}`,
			wantErr:     true,
			errContains: "module_title_column is required",
		},
		{
			name:        "malformed_credentials",
			filename:    "settings.json",
			content:     `{"source_server": "a", "destination_server": "b", "destination_credentials": "nocolon", "columns": {"chapter_number_column": "c", "module_title_column": "m"}}`,
			wantErr:     true,
			errContains: "username:password",
		},
		{
			name:        "unknown_extension",
			filename:    "settings.toml",
			content:     `anything`,
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644), "writing settings fixture")

			cfg, err := Load(context.Background(), path)
			if tt.wantErr {
				require.Error(t, err, "Load should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error message should name the problem")
				return
			}
			require.NoError(t, err, "Load should succeed")
			tt.check(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err, "missing file should fail")
}

func TestValidationErrorsAreInputKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := Load(context.Background(), path)
	require.Error(t, err, "empty settings should fail validation")
	assert.True(t, fault.IsInput(err), "validation failures should be input errors")
}

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Credentials
		wantErr bool
	}{
		{name: "simple", in: "user:pass", want: Credentials{Username: "user", Password: "pass"}},
		{name: "password_with_colon", in: "user:pa:ss", want: Credentials{Username: "user", Password: "pa:ss"}},
		{name: "empty_password", in: "user:", want: Credentials{Username: "user"}},
		{name: "no_separator", in: "user", wantErr: true},
		{name: "empty_username", in: ":pass", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCredentials(tt.in)
			if tt.wantErr {
				require.Error(t, err, "ParseCredentials should fail")
				assert.True(t, fault.IsInput(err), "credential errors should be input errors")
				return
			}
			require.NoError(t, err, "ParseCredentials should succeed")
			assert.Equal(t, tt.want, got, "parsed credentials should match")
		})
	}
}

func TestStripSections(t *testing.T) {
	assert.True(t, (&Settings{}).StripSections(), "stripping should default on")
	assert.True(t, (&Settings{StripSectionNumbers: "yes"}).StripSections(), "explicit yes should keep it on")
	assert.False(t, (&Settings{StripSectionNumbers: "no"}).StripSections(), "no should disable it")
	assert.False(t, (&Settings{StripSectionNumbers: "False"}).StripSections(), "false should disable it regardless of case")
}
