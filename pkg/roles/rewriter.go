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

// Package roles rewrites the ownership metadata inside a module's deposit
// receipt and resolves the credentials of the users those roles name.
package roles

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/config"
	"github.com/openstax/content-copy-tool/pkg/fault"
)

// Rewriter replaces the creator, maintainer and rightsHolder identifier
// blocks of a deposit-receipt XML file with a configured user list.
//
// The receipt format puts at most one tag per role on its own line; the
// rewriter leans on that and applies each role's pattern to every line
// independently. A line with no matching tag is passed through untouched (a
// receipt missing a role entirely simply keeps missing it), and a file that
// somehow carries several tags for one role has every one rewritten. Neither
// case is an error.
type Rewriter struct {
	rules []rule
}

type rule struct {
	pattern *regexp.Regexp
	repl    string
}

// NewRewriter builds the substitution rules for the three role blocks.
// Roles with an empty user list get no rule and leave the file alone.
func NewRewriter(creators, maintainers, rightsholders []string) *Rewriter {
	rw := &Rewriter{}
	rw.addRule("dcterms:creator", creators)
	rw.addRule("oerdc:maintainer", maintainers)
	rw.addRule("dcterms:rightsHolder", rightsholders)
	return rw
}

// addRule builds one role's substitution: a single user replaces the id
// attribute of the existing tag; several users additionally splice in one
// fully formed sibling element per extra user, with placeholder email/name
// fields, keeping the original tag's closing structure for the last entry.
func (rw *Rewriter) addRule(tag string, users []string) {
	if len(users) == 0 {
		return
	}
	pattern := regexp.MustCompile(`<` + tag + ` oerdc:id=".*"`)

	repl := `<` + tag + ` oerdc:id="`
	for _, user := range users[:len(users)-1] {
		repl += user + `" oerdc:email="useremail2@localhost.net" oerdc:pending="False">firstname2 lastname2</` + tag + ">\n<" + tag + ` oerdc:id="`
	}
	repl += users[len(users)-1] + `"`

	rw.rules = append(rw.rules, rule{pattern: pattern, repl: repl})
}

// Rewrite applies the substitution rules to the file line by line, writing a
// temp file alongside it and atomically renaming it over the original. The
// original is untouched when the rewrite fails partway.
func (rw *Rewriter) Rewrite(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return errors.Errorf("opening metadata file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".rewrite-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := bufio.NewWriter(tmp)
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		for _, r := range rw.rules {
			line = r.pattern.ReplaceAllString(line, r.repl)
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return errors.Errorf("writing temp file: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Errorf("reading metadata file: %w", err)
	}
	if err := w.Flush(); err != nil {
		return errors.Errorf("flushing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Errorf("replacing metadata file: %w", err)
	}
	return nil
}

// UsersOfRoles resolves every distinct user referenced by the role settings
// to stored credentials, for accepting pending collaboration requests. A
// referenced user without a stored password is an input error, unless the
// user is the destination credential's own username (their invitations are
// implicit).
func UsersOfRoles(settings *config.Settings) ([]config.Credentials, error) {
	seen := map[string]bool{}
	var users []string
	for _, group := range [][]string{settings.Creators, settings.Maintainers, settings.Rightsholders} {
		for _, user := range group {
			if !seen[user] {
				seen[user] = true
				users = append(users, user)
			}
		}
	}
	sort.Strings(users)

	owner := settings.DestinationCredentials().Username
	var creds []config.Credentials
	for _, user := range users {
		password, ok := settings.Users[user]
		if !ok {
			if user == owner {
				continue
			}
			return nil, fault.Input("resolving role users", "no stored credentials for user %q, check the settings file", user)
		}
		creds = append(creds, config.Credentials{Username: user, Password: password})
	}
	return creds, nil
}
