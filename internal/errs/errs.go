// Copyright 2024 Google LLC
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

// Package errs holds the error sentinels shared between the public parazip
// package and its internal codec/pipeline/blockio packages. It exists so
// that internal packages can return errors the root package recognizes with
// errors.Is/errors.As without creating an import cycle back to the root
// package.
package errs

import "errors"

// Kind sentinels, one per spec.md §7 error kind.
var (
	ErrConfiguration = errors.New("parazip: configuration")
	ErrCodec         = errors.New("parazip: codec")
	ErrSink          = errors.New("parazip: sink")
	ErrSource        = errors.New("parazip: source")
	ErrFraming       = errors.New("parazip: framing")
	ErrMissingEOF    = errors.New("parazip: missing eof block")
	ErrAfterFinish   = errors.New("parazip: after finish")
	ErrPanicked      = errors.New("parazip: worker panicked")
)

// CodecError preserves the format tag and underlying codec failure so
// callers can recover both via errors.As, per spec.md §7 ("CodecError --
// ... includes format tag").
type CodecError struct {
	Format string
	Cause  error
}

func (e *CodecError) Error() string {
	return "parazip: codec(" + e.Format + "): " + e.Cause.Error()
}

func (e *CodecError) Unwrap() []error {
	return []error{ErrCodec, e.Cause}
}

// SinkError preserves the original sink write failure, per spec.md §7
// ("the original sink error cause is preserved for callers that match on
// it").
type SinkError struct {
	Cause error
}

func (e *SinkError) Error() string {
	return "parazip: sink: " + e.Cause.Error()
}

func (e *SinkError) Unwrap() []error {
	return []error{ErrSink, e.Cause}
}

// SourceError preserves the original source read failure.
type SourceError struct {
	Cause error
}

func (e *SourceError) Error() string {
	return "parazip: source: " + e.Cause.Error()
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSource, e.Cause}
}

// FramingError describes a malformed block in a block-framed format.
type FramingError struct {
	Format string
	Reason string
}

func (e *FramingError) Error() string {
	return "parazip: framing(" + e.Format + "): " + e.Reason
}

func (e *FramingError) Unwrap() error {
	return ErrFraming
}
