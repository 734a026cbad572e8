// Copyright 2025 The Noesis Authors. All rights reserved.
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

package graph

import (
	"errors"
	"fmt"
)

// ErrKind classifies engine errors for transport mapping. Kinds, not type
// names: every error crossing a transport boundary carries exactly one.
type ErrKind int

const (
	KindInternal ErrKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindQuotaExceeded
	KindUnauthenticated
	KindPermissionDenied
	KindReasoningBudget
	KindTimeout
	KindTransient
	KindFatal
)

func (k ErrKind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindQuotaExceeded:
		return "QuotaExceeded"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindReasoningBudget:
		return "ReasoningBudgetExceeded"
	case KindTimeout:
		return "Timeout"
	case KindTransient:
		return "Transient"
	case KindFatal:
		return "Fatal"
	}
	return "Internal"
}

// Error is the structured error carried across the engine boundary.
// Suggestions, when present, list near-miss alternatives the caller can
// branch on instead of catching.
type Error struct {
	Kind        ErrKind
	Message     string
	Suggestions []string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Errorf builds a classified error.
func Errorf(kind ErrKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind ErrKind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, cause: err}
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrKind) bool { return err != nil && KindOf(err) == kind }

// Retryable reports whether the operation may be retried.
func Retryable(err error) bool { return IsKind(err, KindTransient) }
