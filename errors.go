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

package parazip

import "github.com/gochunk/parazip/internal/errs"

// Error kind sentinels, one per error kind this package distinguishes.
// Match with [errors.Is]; recover the richer payload types below with
// [errors.As].
var (
	ErrConfiguration = errs.ErrConfiguration
	ErrCodec         = errs.ErrCodec
	ErrSink          = errs.ErrSink
	ErrSource        = errs.ErrSource
	ErrFraming       = errs.ErrFraming
	ErrMissingEOF    = errs.ErrMissingEOF
	ErrAfterFinish   = errs.ErrAfterFinish
	ErrPanicked      = errs.ErrPanicked
)

// CodecError, SinkError, SourceError, and FramingError are type aliases
// for the richer error payloads internal packages return, so callers can
// recover them with [errors.As] without reaching into an internal
// package.
type (
	CodecError   = errs.CodecError
	SinkError    = errs.SinkError
	SourceError  = errs.SourceError
	FramingError = errs.FramingError
)
