// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package coreerr defines the failure taxonomy of the orchestration core
// as distinguishable error types, built on top of go.uber.org/multierr
// for aggregation.
package coreerr

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Kind identifies a taxonomy bucket of collection-loop failure.
type Kind string

const (
	KindTransportFailure        Kind = "TransportFailure"
	KindOfflineNoCache          Kind = "OfflineNoCache"
	KindNotifyStatusFailure     Kind = "NotifyStatusFailure"
	KindMediaInventoryFailure   Kind = "MediaInventoryFailure"
	KindBlacklistReportFailure  Kind = "BlacklistReportFailure"
	KindCommandFailure          Kind = "CommandFailure"
	KindLayoutRenderFailure     Kind = "LayoutRenderFailure"
	KindPushMisconfigured       Kind = "PushMisconfigured"
	KindWeatherFailure          Kind = "WeatherFailure"
)

// CoreError wraps an underlying cause with its taxonomy Kind.
type CoreError struct {
	kind  Kind
	cause error
}

func (e *CoreError) Error() string {
	if e.cause == nil {
		return string(e.kind)
	}
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *CoreError) Unwrap() error { return e.cause }

// Kind returns the taxonomy bucket of this error.
func (e *CoreError) Kind() Kind { return e.kind }

// New wraps cause with the given Kind. Returns nil if cause is nil.
func New(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &CoreError{kind: kind, cause: cause}
}

// Newf builds a CoreError from a format string, no wrapped cause.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &CoreError{kind: kind, cause: fmt.Errorf(format, args...)}
}

// IsKind reports whether err (or something it wraps) is a CoreError of kind.
func IsKind(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.kind == kind
	}
	return false
}

// Append aggregates errs into a single multierr-backed error, dropping nils.
func Append(errs ...error) error {
	var out error
	for _, e := range errs {
		out = multierr.Append(out, e)
	}
	return out
}

// Errors decomposes an aggregated error back into its parts.
func Errors(err error) []error {
	return multierr.Errors(err)
}
