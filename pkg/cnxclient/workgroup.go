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

	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/fault"
)

const opCreateWorkgroup = "creating workgroup"

// workgroup ids live in the redirect URL as /GroupWorkspaces/wgNNNN/...
var workgroupIDRe = regexp.MustCompile(`GroupWorkspaces/(wg[0-9]+)`)

// CreateWorkgroup creates a group workspace on the destination server with
// one form POST and extracts the assigned id from the redirect URL. Returns
// the workgroup id and its workspace URL.
func (c *Client) CreateWorkgroup(ctx context.Context, title string) (id, wgURL string, err error) {
	form := url.Values{
		"title":                 {title},
		"form.button.Reference": {"Create"},
		"form.submitted":        {"1"},
	}
	res, err := c.postForm(ctx, c.Server+"/create_workgroup", form)
	if err != nil {
		return "", "", errors.Errorf("%s: %w", opCreateWorkgroup, err)
	}
	if !res.ok() {
		return "", "", remoteErr(opCreateWorkgroup, res)
	}

	loc := workgroupIDRe.FindStringSubmatchIndex(res.FinalURL)
	if loc == nil {
		return "", "", fault.Remote(opCreateWorkgroup, res.Status, "no workgroup id in redirect url %s", res.FinalURL)
	}
	id = res.FinalURL[loc[2]:loc[3]]
	wgURL = res.FinalURL[:loc[3]]
	return id, wgURL, nil
}
