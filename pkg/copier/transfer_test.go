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
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstax/content-copy-tool/pkg/bookmap"
)

const receiptXML = `<?xml version="1.0"?>
<entry xmlns:dcterms="http://purl.org/dc/terms/" xmlns:oerdc="http://cnx.org/aboutus/technology/schemas/oerdc">
<dcterms:creator oerdc:id="olduser" oerdc:email="old@example.org" oerdc:pending="False">Old User</dcterms:creator>
<dcterms:title>The Founding</dcterms:title>
</entry>
`

func exportZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"m53341/index.cnxml":      "<document/>",
		"m53341/index.cnxml.html": "<html>rendered</html>",
	} {
		e, err := w.Create(name)
		require.NoError(t, err, "creating zip entry")
		_, err = e.Write([]byte(content))
		require.NoError(t, err, "writing zip entry")
	}
	require.NoError(t, w.Close(), "closing zip writer")
	return buf.Bytes()
}

// transferServer serves both sides of a content copy: the source exports and
// the destination sword endpoint.
type transferServer struct {
	t            *testing.T
	swordStatus  int
	uploadBody   []byte
	uploadHeader http.Header
	uploads      int
}

func (ts *transferServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/content/m53341/latest/module_export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(ts.t, "zip", r.URL.Query().Get("format"), "export should request the zip format")
		w.Write(exportZip(ts.t))
	})
	mux.HandleFunc("/content/m53341/latest/rhaptos-deposit-receipt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, receiptXML)
	})
	mux.HandleFunc("/GroupWorkspaces/wg101/m9001/sword", func(w http.ResponseWriter, r *http.Request) {
		ts.uploads++
		ts.uploadHeader = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(ts.t, err, "reading upload body")
		ts.uploadBody = body
		w.WriteHeader(ts.swordStatus)
	})
	return mux
}

func newTransferCopier(t *testing.T, swordStatus int, roles bool) (*Copier, *bookmap.Bookmap, *transferServer) {
	t.Helper()
	ts := &transferServer{t: t, swordStatus: swordStatus}
	srv := httptest.NewServer(ts.handler())
	t.Cleanup(srv.Close)

	bm := copyMapBookmap(t, []*bookmap.Module{
		{
			Title:                   "The Founding",
			SectionNumber:           "5.1",
			ChapterNumber:           "5",
			ChapterTitle:            "History",
			SourceID:                "m53341",
			DestinationID:           "m9001",
			DestinationWorkspaceURL: srv.URL + "/GroupWorkspaces/wg101",
			Valid:                   true,
		},
	})

	c := newTestCopier(t, bm, &stubCMS{}, Options{Copy: true, Roles: roles})
	c.Settings.SourceServer = srv.URL
	c.Settings.Creators = []string{"newauthor"}
	c.HTTP = srv.Client()
	return c, bm, ts
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "reading work dir")
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCopyContentUploadsCleanedContent(t *testing.T) {
	c, bm, ts := newTransferCopier(t, http.StatusCreated, true)

	require.NoError(t, c.Run(context.Background()), "Run should succeed")
	require.Empty(t, c.Failures(), "no failures expected")
	assert.True(t, bm.Modules[0].Valid, "the module should stay valid")

	require.Equal(t, 1, ts.uploads, "exactly one upload")
	assert.Equal(t, "true", ts.uploadHeader.Get("In-Progress"), "the sword deposit must be flagged in progress")
	assert.Contains(t, ts.uploadHeader.Get("Content-Type"), "multipart/related", "the body is a multipart/related document")
	assert.Contains(t, ts.uploadHeader.Get("Authorization"), "Basic ", "the upload authenticates with basic auth")

	assert.Contains(t, string(ts.uploadBody), `oerdc:id="newauthor"`, "the rewritten receipt should be uploaded")
	assert.NotContains(t, string(ts.uploadBody), `oerdc:id="olduser"`, "the original owner should be gone from the receipt")
	assert.NotContains(t, string(ts.uploadBody), "index.cnxml.html", "the rendered index must not be uploaded")

	assert.Empty(t, tempFiles(t, c.WorkDir), "temp files are removed after an accepted upload")
}

func TestCopyContentUploadFailureLeavesTempFiles(t *testing.T) {
	c, bm, _ := newTransferCopier(t, http.StatusInternalServerError, false)

	require.NoError(t, c.Run(context.Background()), "an upload failure must not abort the run")

	assert.False(t, bm.Modules[0].Valid, "the module should be invalidated")
	assert.Equal(t, []Failure{{Entity: "5.1 The Founding", Operation: opUploadingContent}}, c.Failures(),
		"the upload failure should be recorded")

	names := tempFiles(t, c.WorkDir)
	assert.Contains(t, names, "m53341.zip", "the export zip stays for manual recovery")
	assert.Contains(t, names, "m53341.xml", "the receipt stays for manual recovery")
	assert.Contains(t, names, "m53341.mpart", "the multipart body stays for manual recovery")
}

func TestCopyContentDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	bm := copyMapBookmap(t, []*bookmap.Module{
		{Title: "Gone", ChapterNumber: "1", SourceID: "m404", DestinationID: "m9001", DestinationWorkspaceURL: srv.URL + "/ws", Valid: true},
	})
	c := newTestCopier(t, bm, &stubCMS{}, Options{Copy: true})
	c.Settings.SourceServer = srv.URL
	c.HTTP = srv.Client()

	require.NoError(t, c.Run(context.Background()), "a download failure must not abort the run")
	assert.False(t, bm.Modules[0].Valid, "the module should be invalidated")
	assert.Equal(t, []Failure{{Entity: "Gone", Operation: opCopyingContent}}, c.Failures(), "the download failure should be recorded")
}

func TestBuildMultipart(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "m1.xml")
	zipPath := filepath.Join(dir, "m1.zip")
	require.NoError(t, os.WriteFile(xmlPath, []byte("<entry/>"), 0o644))
	require.NoError(t, os.WriteFile(zipPath, []byte("zipbytes"), 0o644))

	dest := filepath.Join(dir, "m1.mpart")
	boundary, err := buildMultipart(xmlPath, zipPath, dest)
	require.NoError(t, err, "buildMultipart should succeed")
	require.NotEmpty(t, boundary, "a boundary should be generated")

	body, err := os.ReadFile(dest)
	require.NoError(t, err, "the multipart body should exist")
	content := string(body)
	assert.Contains(t, content, "--"+boundary, "the body should use the returned boundary")
	assert.Contains(t, content, "application/atom+xml", "the receipt part should be atom")
	assert.Contains(t, content, "<entry/>", "the receipt content should be embedded")
	assert.Contains(t, content, "zipbytes", "the zip content should be embedded")
	assert.Contains(t, content, `filename="m1.zip"`, "the zip part should carry its filename")
}
