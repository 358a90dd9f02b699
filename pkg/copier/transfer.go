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

package copier

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/openstax/content-copy-tool/pkg/fault"
)

// download fetches url into dest. The file is written even for partial
// reads so a failed transfer can be inspected.
func (c *Copier) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Errorf("building download request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fault.Remote("downloading content", resp.StatusCode, "GET %s: %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.Errorf("creating %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return errors.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// upload assembles the deposit receipt and cleaned zip into a
// multipart/related body next to the other temp files and POSTs it to the
// destination module's sword endpoint. The assembled file's path is always
// returned so callers can account for it; it is the caller's job to remove
// temps after an accepted upload.
func (c *Copier) upload(ctx context.Context, xmlPath, zipPath, url string) (string, error) {
	mpartPath := strings.TrimSuffix(zipPath, filepath.Ext(zipPath)) + ".mpart"

	boundary, err := buildMultipart(xmlPath, zipPath, mpartPath)
	if err != nil {
		return mpartPath, errors.Errorf("assembling multipart body: %w", err)
	}

	body, err := os.Open(mpartPath)
	if err != nil {
		return mpartPath, errors.Errorf("opening multipart body: %w", err)
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return mpartPath, errors.Errorf("building upload request: %w", err)
	}
	creds := c.Settings.DestinationCredentials()
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Content-Type", `multipart/related;boundary=`+boundary+`;type="application/atom+xml"`)
	req.Header.Set("In-Progress", "true")
	req.Header.Set("Accept-Encoding", "zip")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return mpartPath, errors.Errorf("uploading to %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return mpartPath, fault.Remote("uploading content", resp.StatusCode, "POST %s: %s", url, resp.Status)
	}
	return mpartPath, nil
}

// buildMultipart writes a two-part multipart/related body (atom deposit
// receipt, then the zip payload) to dest and returns the boundary.
func buildMultipart(xmlPath, zipPath, dest string) (string, error) {
	out, err := os.Create(dest)
	if err != nil {
		return "", errors.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	w := multipart.NewWriter(out)

	if err := appendPart(w, xmlPath, textproto.MIMEHeader{
		"Content-Type": {`application/atom+xml; charset="utf-8"`},
	}); err != nil {
		return "", err
	}
	if err := appendPart(w, zipPath, textproto.MIMEHeader{
		"Content-Type":        {"application/zip"},
		"Content-Disposition": {`attachment; name="payload"; filename="` + filepath.Base(zipPath) + `"`},
	}); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", errors.Errorf("finalizing multipart body: %w", err)
	}
	return w.Boundary(), nil
}

func appendPart(w *multipart.Writer, path string, header textproto.MIMEHeader) error {
	part, err := w.CreatePart(header)
	if err != nil {
		return errors.Errorf("creating part for %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(part, f); err != nil {
		return errors.Errorf("copying %s into multipart body: %w", path, err)
	}
	return nil
}
