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
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/fault"
)

const (
	opCreateModule  = "creating module"
	opPublishModule = "publishing module"

	// fallbackLicense is used when the license form value cannot be scraped
	// out of the creation wizard's license page.
	fallbackLicense = "http://creativecommons.org/licenses/by/4.0/"
)

var (
	// the wizard's license page carries the license url as a form value
	licenseValueRe = regexp.MustCompile(`name="license"\s+value="([^"]+)"`)

	// published content redirects to .../<id>/content_published
	publishedIDRe = regexp.MustCompile(`/([^/]+)/content_published`)

	moduleIDRe = regexp.MustCompile(`^m[0-9]+$`)
)

// CreateModule walks the CMS's three-step creation wizard inside the given
// workspace: select the content type, accept the license (scraped from the
// wizard page, CC-BY 4.0 when absent), and set the title. Each step's URL
// comes from the previous response; the first non-success response aborts
// the remaining steps. Returns the new object's edit URL (trailing slash
// included).
func (c *Client) CreateModule(ctx context.Context, title, workspaceURL string) (string, error) {
	return c.createContent(ctx, opCreateModule, "Module", title, workspaceURL)
}

func (c *Client) createContent(ctx context.Context, op, typeName, title, workspaceURL string) (string, error) {
	selectType := url.Values{
		"type_name":                  {typeName},
		"workspace_factories:method": {"Create New Item"},
	}
	res1, err := c.postForm(ctx, workspaceURL, selectType)
	if err != nil {
		return "", errors.Errorf("%s (select type): %w", op, err)
	}
	if !res1.ok() {
		return "", fault.Remote(op, res1.Status, "select type: %s", res1.StatusText)
	}

	license := fallbackLicense
	if m := licenseValueRe.FindStringSubmatch(res1.Body); m != nil {
		license = m[1]
	}

	acceptLicense := url.Values{
		"agree":            {"on"},
		"form.button.next": {"Next >>"},
		"license":          {license},
		"form.submitted":   {"1"},
	}
	res2, err := c.postForm(ctx, res1.FinalURL, acceptLicense)
	if err != nil {
		return "", errors.Errorf("%s (accept license): %w", op, err)
	}
	if !res2.ok() {
		return "", fault.Remote(op, res2.Status, "accept license: %s", res2.StatusText)
	}

	// the edit url is the license page's url up to the cc_license segment
	idx := strings.Index(res2.FinalURL, "cc_license")
	if idx < 0 {
		return "", fault.Remote(op, res2.Status, "no cc_license segment in url %s", res2.FinalURL)
	}
	editURL := res2.FinalURL[:idx]

	setTitle := url.Values{
		"title":            {title},
		"master_language":  {"en"},
		"language":         {"en"},
		"license":          {license},
		"form.button.next": {"Next >>"},
		"form.submitted":   {"1"},
	}
	res3, err := c.postForm(ctx, editURL+"content_title", setTitle)
	if err != nil {
		return "", errors.Errorf("%s (set title): %w", op, err)
	}
	if !res3.ok() {
		return "", fault.Remote(op, res3.Status, "set title: %s", res3.StatusText)
	}

	return editURL, nil
}

// PublishModule publishes the module behind the given edit URL. New modules
// need the publish-description POST plus the confirmation POST, after which
// the assigned id is extracted from the redirect; already-published modules
// skip the confirmation and derive the id from the edit URL's trailing path
// segment.
func (c *Client) PublishModule(ctx context.Context, editURL string, isNew bool) (id, publishedURL string, err error) {
	describe := url.Values{
		"message":             {"copied content"},
		"form.button.publish": {"Publish"},
		"form.submitted":      {"1"},
	}
	res1, err := c.postForm(ctx, editURL+"module_publish_description", describe)
	if err != nil {
		return "", "", errors.Errorf("%s (describe): %w", opPublishModule, err)
	}
	if !res1.ok() {
		return "", "", fault.Remote(opPublishModule, res1.Status, "describe: %s", res1.StatusText)
	}

	if !isNew {
		return trailingSegment(editURL), editURL, nil
	}

	confirm := url.Values{
		"message": {"copied content"},
		"publish": {"Yes, Publish"},
	}
	res2, err := c.postForm(ctx, editURL+"publishContent", confirm)
	if err != nil {
		return "", "", errors.Errorf("%s (confirm): %w", opPublishModule, err)
	}
	if !res2.ok() {
		return "", "", fault.Remote(opPublishModule, res2.Status, "confirm: %s", res2.StatusText)
	}

	m := publishedIDRe.FindStringSubmatch(res2.FinalURL)
	if m == nil {
		return "", "", fault.Remote(opPublishModule, res2.Status, "no published id in url %s", res2.FinalURL)
	}
	if !moduleIDRe.MatchString(m[1]) {
		return "", "", fault.Remote(opPublishModule, res2.Status, "unexpected module id %q in url %s", m[1], res2.FinalURL)
	}
	return m[1], res2.FinalURL, nil
}

// trailingSegment returns the last path segment of a URL, ignoring a
// trailing slash.
func trailingSegment(u string) string {
	trimmed := strings.TrimRight(u, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}
