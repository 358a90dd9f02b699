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

package cnxclient

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/fault"
)

const (
	opCreateCollection  = "creating collection"
	opAddSubcollections = "adding subcollections"
	opAddModule         = "adding module to collection"
	opPublishCollection = "publishing collection"
)

// Collection is a destination-side publication container. The tree is built
// root -> units -> chapters, with modules attached to the leaves.
type Collection struct {
	Title  string
	ID     string
	URL    string
	Parent *Collection
}

// CreateCollection runs the same three-step creation wizard as modules with
// the Collection content type. The returned collection's URL is its edit
// URL; the id is the workspace object id (the URL's trailing segment) until
// publication assigns the permanent colNNNN id.
func (c *Client) CreateCollection(ctx context.Context, title string) (*Collection, error) {
	editURL, err := c.createContent(ctx, opCreateCollection, "Collection", title, c.personalWorkspaceURL())
	if err != nil {
		return nil, err
	}
	return &Collection{Title: title, ID: trailingSegment(editURL), URL: editURL}, nil
}

func (c *Client) personalWorkspaceURL() string {
	return c.Server + "/Members/" + c.Creds.Username
}

// AddSubcollections creates one subcollection per title under the parent
// with a single POST. The CMS tree editor answers with a bracketed
// pseudo-JSON fragment; the created node ids are recovered by tolerant
// scanning for the nodeid/text key markers rather than strict decoding.
func (c *Client) AddSubcollections(ctx context.Context, parent *Collection, titles []string) ([]*Collection, error) {
	form := url.Values{
		"titles":         {strings.Join(titles, "\n")},
		"form.submitted": {"1"},
	}
	res, err := c.postForm(ctx, parent.URL+"create_subcollections", form)
	if err != nil {
		return nil, errors.Errorf("%s: %w", opAddSubcollections, err)
	}
	if !res.ok() {
		return nil, remoteErr(opAddSubcollections, res)
	}

	entries := parseNodeEntries(res.Body)
	if len(entries) < len(titles) {
		return nil, fault.Remote(opAddSubcollections, res.Status, "expected %d subcollection nodes, found %d in response", len(titles), len(entries))
	}

	subs := make([]*Collection, 0, len(titles))
	for i := range titles {
		subs = append(subs, &Collection{
			Title:  entries[i].Text,
			ID:     entries[i].NodeID,
			URL:    parent.URL + entries[i].NodeID + "/",
			Parent: parent,
		})
	}
	return subs, nil
}

// AddModuleToCollection links one published module into the collection.
func (c *Client) AddModuleToCollection(ctx context.Context, moduleID string, coll *Collection) error {
	form := url.Values{
		"ids:list":       {moduleID},
		"form.submitted": {"1"},
	}
	res, err := c.postForm(ctx, coll.URL+"add_module", form)
	if err != nil {
		return errors.Errorf("%s: %w", opAddModule, err)
	}
	if !res.ok() {
		return remoteErr(opAddModule, res)
	}
	return nil
}

// PublishCollection runs the two-POST publish sequence on the collection and
// records the assigned colNNNN id when the redirect carries one.
func (c *Client) PublishCollection(ctx context.Context, coll *Collection) error {
	describe := url.Values{
		"message":             {"created collection"},
		"form.button.publish": {"Publish"},
		"form.submitted":      {"1"},
	}
	res1, err := c.postForm(ctx, coll.URL+"module_publish_description", describe)
	if err != nil {
		return errors.Errorf("%s (describe): %w", opPublishCollection, err)
	}
	if !res1.ok() {
		return fault.Remote(opPublishCollection, res1.Status, "describe: %s", res1.StatusText)
	}

	confirm := url.Values{
		"message": {"created collection"},
		"publish": {"Yes, Publish"},
	}
	res2, err := c.postForm(ctx, coll.URL+"publishContent", confirm)
	if err != nil {
		return errors.Errorf("%s (confirm): %w", opPublishCollection, err)
	}
	if !res2.ok() {
		return fault.Remote(opPublishCollection, res2.Status, "confirm: %s", res2.StatusText)
	}

	if m := publishedIDRe.FindStringSubmatch(res2.FinalURL); m != nil {
		coll.ID = m[1]
	}
	return nil
}

// nodeEntry is one scanned tree node from the subcollection response.
type nodeEntry struct {
	NodeID string
	Text   string
}

// parseNodeEntries scans a bracketed pseudo-JSON fragment for nodeid/text
// value pairs. The fragment is not valid JSON (single quotes, unquoted ids,
// trailing commas all occur in the wild), so this locates each "nodeid" key
// marker and reads the value token after it, then does the same for the
// "text" key belonging to the same entry. An entry without a text value
// degrades to a bare nodeid.
func parseNodeEntries(body string) []nodeEntry {
	var entries []nodeEntry
	rest := body
	for {
		idx := strings.Index(rest, "nodeid")
		if idx < 0 {
			break
		}
		rest = rest[idx+len("nodeid"):]
		id, after := scanValue(rest)
		if id == "" {
			continue
		}
		tidx := strings.Index(after, "text")
		nidx := strings.Index(after, "nodeid")
		if tidx < 0 || (nidx >= 0 && nidx < tidx) {
			// no text before the next entry starts; don't steal the
			// neighbor's text value
			entries = append(entries, nodeEntry{NodeID: id})
			rest = after
			continue
		}
		text, after2 := scanValue(after[tidx+len("text"):])
		entries = append(entries, nodeEntry{NodeID: id, Text: text})
		rest = after2
	}
	return entries
}

// scanValue reads the next value token after a key marker: skips the key's
// closing quote, the colon, and whitespace, then returns either the quoted
// string or the bare token up to a delimiter.
func scanValue(s string) (string, string) {
	i := 0
	for i < len(s) && (s[i] == '"' || s[i] == '\'' || s[i] == ':' || unicode.IsSpace(rune(s[i]))) {
		if s[i] == ':' {
			i++
			break
		}
		i++
	}
	for i < len(s) && unicode.IsSpace(rune(s[i])) {
		i++
	}
	if i >= len(s) {
		return "", ""
	}
	if s[i] == '"' || s[i] == '\'' {
		quote := s[i]
		end := strings.IndexByte(s[i+1:], quote)
		if end < 0 {
			return "", ""
		}
		return s[i+1 : i+1+end], s[i+1+end+1:]
	}
	end := i
	for end < len(s) && s[end] != ',' && s[end] != '}' && s[end] != ']' && !unicode.IsSpace(rune(s[end])) {
		end++
	}
	return s[i:end], s[end:]
}
