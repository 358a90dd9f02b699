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

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEntityOperation(t *testing.T) {
	var console, structured bytes.Buffer
	l := New(&console, &structured, zerolog.InfoLevel)

	l.LogEntityOperation(EntityOperation{
		Title:     "5.1 The Founding",
		Operation: "creating placeholder",
		Detail:    "m9001",
	})
	l.LogEntityOperation(EntityOperation{
		Title:     "5.2 The Constitution",
		Operation: "copying content",
		Detail:    "uploading content: 500 Internal Server Error",
		Failed:    true,
	})

	out := console.String()
	assert.Contains(t, out, "5.1 The Founding", "console should carry the entity title")
	assert.Contains(t, out, "m9001", "console should carry the detail")
	assert.Contains(t, out, "✓", "successes are marked with a check")
	assert.Contains(t, out, "✗", "failures are marked with a cross")

	lines := strings.Split(strings.TrimSpace(structured.String()), "\n")
	require.Len(t, lines, 2, "each operation should produce one structured event")
	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &event), "structured output should be JSON")
	assert.Equal(t, "5.2 The Constitution", event["entity"], "structured event should carry the entity")
	assert.Equal(t, true, event["failed"], "structured event should carry the failed flag")
}

func TestFailureReport(t *testing.T) {
	var console bytes.Buffer
	l := New(&console, &bytes.Buffer{}, zerolog.InfoLevel)

	l.FailureReport(
		[]string{"5.1 The Founding", "9.1 Founding Documents"},
		[]string{"creating placeholder", "uploading content"},
	)

	out := console.String()
	assert.Contains(t, out, "5.1 The Founding", "report should list the failed entities")
	assert.Contains(t, out, "uploading content", "report should list the failed operations")
}

func TestFailureReportEmpty(t *testing.T) {
	var console bytes.Buffer
	l := New(&console, &bytes.Buffer{}, zerolog.InfoLevel)

	l.FailureReport(nil, nil)
	assert.NotContains(t, console.String(), "✗", "an empty failure list should not render failure rows")
}

func TestPhaseBanner(t *testing.T) {
	var console bytes.Buffer
	l := New(&console, &bytes.Buffer{}, zerolog.InfoLevel)

	l.Phase("Copying content")
	assert.Contains(t, console.String(), "-------- Copying content ", "phase banners frame the console output")
}
