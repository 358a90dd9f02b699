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

	"github.com/openstax/content-copy-tool/pkg/config"
)

const opAcceptRoles = "accepting role requests"

// pending collaboration requests appear as checkbox fields on the
// collaborations page
var pendingIDRe = regexp.MustCompile(`name="ids:list" value="([^"]*)"`)

// AcceptPendingRoleRequests accepts every collaboration request pending for
// the given user on this server: it fetches the collaborations page as that
// user, scrapes all ids:list field values, and submits them batched on the
// accept endpoint. The accept endpoint genuinely is a GET in this CMS.
// Returns the number of requests accepted; a user with nothing pending is a
// no-op, not an error.
func (c *Client) AcceptPendingRoleRequests(ctx context.Context, creds config.Credentials) (int, error) {
	res, err := c.get(ctx, c.Server+"/collaborations", creds)
	if err != nil {
		return 0, errors.Errorf("%s: %w", opAcceptRoles, err)
	}
	if !res.ok() {
		return 0, remoteErr(opAcceptRoles, res)
	}

	matches := pendingIDRe.FindAllStringSubmatch(res.Body, -1)
	if len(matches) == 0 {
		return 0, nil
	}

	params := url.Values{}
	for _, m := range matches {
		params.Add("ids:list", m[1])
	}
	params.Set("agree", "")
	params.Set("accept", " Accept ")

	res, err = c.get(ctx, c.Server+"/updateCollaborations?"+params.Encode(), creds)
	if err != nil {
		return 0, errors.Errorf("%s: %w", opAcceptRoles, err)
	}
	if !res.ok() {
		return 0, remoteErr(opAcceptRoles, res)
	}
	return len(matches), nil
}
