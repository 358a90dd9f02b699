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

package roles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstax/content-copy-tool/pkg/config"
	"github.com/openstax/content-copy-tool/pkg/fault"
)

const receiptFixture = `<?xml version="1.0"?>
<entry xmlns:dcterms="http://purl.org/dc/terms/" xmlns:oerdc="http://cnx.org/aboutus/technology/schemas/oerdc">
<dcterms:creator oerdc:id="olduser" oerdc:email="old@example.org" oerdc:pending="False">Old User</dcterms:creator>
<oerdc:maintainer oerdc:id="olduser" oerdc:email="old@example.org" oerdc:pending="False">Old User</oerdc:maintainer>
<dcterms:rightsHolder oerdc:id="olduser" oerdc:email="old@example.org" oerdc:pending="False">Old User</dcterms:rightsHolder>
<dcterms:title>The Founding</dcterms:title>
</entry>
`

func writeReceipt(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "m53341.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "writing receipt fixture")
	return path
}

func TestRewriteSingleUser(t *testing.T) {
	path := writeReceipt(t, receiptFixture)
	rw := NewRewriter([]string{"newauthor"}, []string{"newauthor"}, []string{"newauthor"})

	require.NoError(t, rw.Rewrite(path), "Rewrite should succeed")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "rewritten file should be readable")
	content := string(data)

	assert.Contains(t, content, `<dcterms:creator oerdc:id="newauthor"`, "creator id should be replaced")
	assert.Contains(t, content, `<oerdc:maintainer oerdc:id="newauthor"`, "maintainer id should be replaced")
	assert.Contains(t, content, `<dcterms:rightsHolder oerdc:id="newauthor"`, "rightsholder id should be replaced")
	assert.NotContains(t, content, `oerdc:id="olduser"`, "no old ids should survive")
	assert.Contains(t, content, "<dcterms:title>The Founding</dcterms:title>", "unrelated lines must pass through untouched")
}

func TestRewriteMultipleUsers(t *testing.T) {
	path := writeReceipt(t, receiptFixture)
	rw := NewRewriter([]string{"author1", "author2"}, nil, nil)

	require.NoError(t, rw.Rewrite(path), "Rewrite should succeed")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "rewritten file should be readable")
	content := string(data)

	assert.Contains(t, content, `<dcterms:creator oerdc:id="author1" oerdc:email="useremail2@localhost.net" oerdc:pending="False">firstname2 lastname2</dcterms:creator>`,
		"the first user should get a fully formed spliced element")
	assert.Contains(t, content, `<dcterms:creator oerdc:id="author2"`, "the last user should take over the original tag")
	assert.Equal(t, 2, strings.Count(content, "<dcterms:creator "), "one creator element per user")
	assert.Equal(t, 1, strings.Count(content, `<oerdc:maintainer oerdc:id="olduser"`), "roles with no configured users must stay untouched")
}

func TestRewriteNoMatchingTags(t *testing.T) {
	original := "<entry>\n<dcterms:title>No roles here</dcterms:title>\n</entry>\n"
	path := writeReceipt(t, original)
	rw := NewRewriter([]string{"newauthor"}, []string{"newauthor"}, []string{"newauthor"})

	require.NoError(t, rw.Rewrite(path), "a file without role tags is not an error")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "file should still be readable")
	assert.Equal(t, original, string(data), "content should be unchanged")
}

func TestRewriteMissingFile(t *testing.T) {
	rw := NewRewriter([]string{"newauthor"}, nil, nil)
	err := rw.Rewrite(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err, "a missing receipt must fail the rewrite")
}

func TestUsersOfRoles(t *testing.T) {
	tests := []struct {
		name        string
		settings    *config.Settings
		want        []config.Credentials
		wantErr     bool
		errContains string
	}{
		{
			name: "distinct_sorted_users",
			settings: &config.Settings{
				Credentials:   "migrator:pw",
				Creators:      []string{"zed", "amy"},
				Maintainers:   []string{"amy"},
				Rightsholders: []string{"bob"},
				Users:         map[string]string{"amy": "pw-a", "bob": "pw-b", "zed": "pw-z"},
			},
			want: []config.Credentials{
				{Username: "amy", Password: "pw-a"},
				{Username: "bob", Password: "pw-b"},
				{Username: "zed", Password: "pw-z"},
			},
		},
		{
			name: "destination_owner_skipped",
			settings: &config.Settings{
				Credentials: "migrator:pw",
				Creators:    []string{"migrator", "amy"},
				Users:       map[string]string{"amy": "pw-a"},
			},
			want: []config.Credentials{{Username: "amy", Password: "pw-a"}},
		},
		{
			name: "missing_password",
			settings: &config.Settings{
				Credentials: "migrator:pw",
				Creators:    []string{"ghost"},
			},
			wantErr:     true,
			errContains: `"ghost"`,
		},
		{
			name:     "no_roles_configured",
			settings: &config.Settings{Credentials: "migrator:pw"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UsersOfRoles(tt.settings)
			if tt.wantErr {
				require.Error(t, err, "UsersOfRoles should fail")
				assert.True(t, fault.IsInput(err), "missing credentials are an input error")
				assert.Contains(t, err.Error(), tt.errContains, "error should name the user")
				return
			}
			require.NoError(t, err, "UsersOfRoles should succeed")
			assert.Equal(t, tt.want, got, "resolved credentials should match")
		})
	}
}
