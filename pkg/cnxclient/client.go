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

// Package cnxclient drives the legacy CNX content management system over
// HTTP. The CMS has no API: every logical operation here replays the form
// submissions a browser would make, following redirects and scraping the
// next step's URL and the created object's id out of each response. Each
// exported method is one atomic multi-request operation that either returns
// the extracted identifier or fails with a remote fault at the first
// unexpected response; nothing is retried.
package cnxclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/config"
	"github.com/openstax/content-copy-tool/pkg/fault"
)

// 🎯 Client is an authenticated session against one CMS installation.
type Client struct {
	Server string
	Creds  config.Credentials

	// HTTP is the underlying client; tests swap in an httptest client.
	// No timeout or retry policy is layered on top of it.
	HTTP *http.Client
}

// New creates a client for the given server (scheme included) and basic-auth
// credentials.
func New(server string, creds config.Credentials) *Client {
	return &Client{
		Server: strings.TrimRight(server, "/"),
		Creds:  creds,
		HTTP:   &http.Client{},
	}
}

// formResult captures what the multi-step recipes need from a response: the
// status, the post-redirect URL, and the body for token scraping.
type formResult struct {
	Status     int
	StatusText string
	FinalURL   string
	Body       string
}

func (r *formResult) ok() bool {
	return r.Status < 400
}

// postForm submits one urlencoded form with basic auth, following redirects.
func (c *Client) postForm(ctx context.Context, target string, form url.Values) (*formResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.Creds.Username, c.Creds.Password)
	return c.send(ctx, req)
}

// get issues one GET with basic auth. Used where the CMS expects form
// actions over GET (the role-acceptance endpoint really is a GET).
func (c *Client) get(ctx context.Context, target string, creds config.Credentials) (*formResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req *http.Request) (*formResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("cms request")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Errorf("reading response body: %w", err)
	}

	res := &formResult{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		FinalURL:   resp.Request.URL.String(),
		Body:       string(body),
	}
	logger.Debug().Int("status", res.Status).Str("final_url", res.FinalURL).Msg("cms response")
	return res, nil
}

// remoteErr converts a non-success form result into a remote fault.
func remoteErr(op string, res *formResult) error {
	return fault.Remote(op, res.Status, "%s", res.StatusText)
}
