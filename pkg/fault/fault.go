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

// Package fault defines the tool's error taxonomy. There are exactly two
// kinds: input errors (bad settings or bookmap schema, fatal before any
// remote call) and remote errors (a legacy CMS operation failed, caught per
// entity and converted into a failure record).
package fault

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// Kind distinguishes the two error variants.
type Kind int

const (
	KindInput Kind = iota
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error is the single tagged error type used across the tool.
type Error struct {
	Kind   Kind
	Op     string // logical operation, e.g. "creating workgroup"
	Status int    // HTTP status for remote errors, 0 otherwise
	Reason string
}

func (e *Error) Error() string {
	if e.Kind == KindRemote && e.Status != 0 {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Reason)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return e.Reason
}

// Input creates an input-kind error.
func Input(op, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// Remote creates a remote-kind error for a failed CMS operation.
func Remote(op string, status int, format string, args ...any) *Error {
	return &Error{Kind: KindRemote, Op: op, Status: status, Reason: fmt.Sprintf(format, args...)}
}

// IsInput reports whether err is (or wraps) an input-kind error.
func IsInput(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindInput
}

// IsRemote reports whether err is (or wraps) a remote-kind error.
func IsRemote(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindRemote
}
