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
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	entityIndent = 4  // spaces to indent per-entity lines
	titleWidth   = 45 // base width for entity titles
	opWidth      = 25 // width for the operation name
)

// 🎯 EntityOperation represents one per-entity step for logging
type EntityOperation struct {
	Title     string // module/workgroup/collection title
	Operation string // e.g. "creating placeholder"
	Detail    string // destination id, url, or failure reason
	Failed    bool
	Skipped   bool
}

// 🎯 Logger pairs an operator-facing console stream with structured zerolog
// output, so a run reads cleanly on a terminal while the logfile keeps the
// machine-readable trail.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a logger writing console output to console and structured
// output to structured.
func New(console, structured io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(structured).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// Zerolog exposes the structured logger for context embedding.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// 📝 Phase prints a phase banner
func (l *Logger) Phase(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	banner := fmt.Sprintf("-------- %s ", name)
	for len(banner) < 56 {
		banner += "-"
	}
	fmt.Fprintln(l.console, color.New(color.Bold).Sprint(banner))
	l.zlog.Info().Str("phase", name).Msg("phase started")
}

// 📝 LogEntityOperation logs one per-entity step
func (l *Logger) LogEntityOperation(op EntityOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var symbol string
	switch {
	case op.Failed:
		symbol = color.New(color.FgRed).Sprint("✗")
	case op.Skipped:
		symbol = color.New(color.FgYellow).Sprint("-")
	default:
		symbol = color.New(color.FgGreen).Sprint("✓")
	}

	fmt.Fprintf(l.console, "%*s%s %-*s %s %s\n",
		entityIndent, "", symbol,
		titleWidth, op.Title,
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", opWidth, op.Operation)),
		op.Detail)

	l.zlog.Info().
		Str("entity", op.Title).
		Str("operation", op.Operation).
		Str("detail", op.Detail).
		Bool("failed", op.Failed).
		Bool("skipped", op.Skipped).
		Msg("entity operation")
}

// 📝 Summary prints one labeled line of the pre-run summary
func (l *Logger) Summary(label, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n",
		fmt.Sprintf("%-22s", label+":"),
		color.New(color.FgMagenta).Sprint(value))
	l.zlog.Info().Str(label, value).Msg("run summary")
}

// 📝 Header prints the tool banner
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("content-copy-tool")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...any) {
	l.Success(fmt.Sprintf(format, args...))
}

// 📝 FailureReport renders the end-of-run failure list; entities and
// operations come in as parallel slices.
func (l *Logger) FailureReport(entities, operations []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(entities) == 0 {
		fmt.Fprintf(l.console, "%s\n", color.New(color.FgGreen).Sprint("no failures"))
		return
	}
	fmt.Fprintf(l.console, "%s\n", color.New(color.Bold, color.FgRed).Sprintf("%d failure(s):", len(entities)))
	for i := range entities {
		fmt.Fprintf(l.console, "%*s%s %s %s\n",
			entityIndent, "",
			color.New(color.FgRed).Sprint("✗"),
			fmt.Sprintf("%-*s", titleWidth, entities[i]),
			operations[i])
		l.zlog.Error().Str("entity", entities[i]).Str("operation", operations[i]).Msg("run failure")
	}
}
