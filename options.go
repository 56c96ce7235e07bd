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

import (
	"fmt"
	"runtime"

	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/errs"
)

// DefaultBufferSize is the target uncompressed chunk size used when
// Options.BufferSize is left at zero, per spec.md §4.6.
const DefaultBufferSize = 128 << 10

// maxThreadsPerCPU bounds NumThreads relative to runtime.NumCPU, per
// spec.md §4.6's "num_threads > cpu_count * k fails construction". k=4
// allows comfortable oversubscription for I/O-bound sinks without letting
// a typo (NumThreads: 1_000_000) silently spin up a useless goroutine
// flood.
const maxThreadsPerCPU = 4

// maxGenericBufferSize bounds BufferSize for formats with no format-
// specific ceiling of their own (everything but BGZF, whose ceiling is
// its MaxInput). It exists only to keep the "(N + slack) * buffer_size"
// in-flight memory bound of spec.md §5 from growing unreasonably large
// on a misconfigured caller; it is not a format requirement.
const maxGenericBufferSize = 64 << 20

// Options configures a [Writer] or [BlockReader]. The zero value is not
// valid: Format must be set explicitly.
type Options struct {
	// Format selects the on-wire compression format.
	Format Format

	// Level is the codec's compression level. Zero selects the format's
	// default; out-of-range values also fall back to the default rather
	// than failing construction, matching [compress/flate]'s own
	// leniency.
	Level int

	// NumThreads is the worker pool size. 0 or 1 selects the
	// synchronous backend.
	NumThreads int

	// BufferSize is the target uncompressed chunk size. Zero selects
	// DefaultBufferSize.
	BufferSize int

	// PinAt, when >= 0, asks each worker to lock itself to an OS thread
	// as a best-effort affinity hint (see NewWriter's doc comment for
	// why this module cannot offer true CPU pinning). Negative disables
	// pinning; this is the default zero value's behavior only if
	// explicitly set to a negative number, since the zero value 0 is
	// itself a valid starting CPU index. Callers that don't want pinning
	// should leave this unset only if they also leave NumThreads at a
	// value that makes it moot, or set it to -1 explicitly.
	PinAt int

	// DictSizeOverride, when non-zero, replaces the codec's default
	// dictionary tail size for Gzip/Zlib/RawDeflate. It is rejected for
	// independent-block formats (Snappy, Mgzip, BGZF), which never use
	// one.
	DictSizeOverride int
}

// bufferSize resolves the target uncompressed chunk size for profile: an
// explicit BufferSize wins, otherwise a format with a MaxInput ceiling
// defaults to it (only BGZF has one: its 65280-byte cap, well under
// DefaultBufferSize) and everything else, Mgzip included, defaults to
// DefaultBufferSize.
func (o Options) bufferSize(profile codec.Profile) int {
	if o.BufferSize > 0 {
		return o.BufferSize
	}
	if profile.MaxInput > 0 {
		return profile.MaxInput
	}
	return DefaultBufferSize
}

// validate checks o against profile, the resolved format's fixed
// invariants, per spec.md §4.6's misconfiguration list. It does not check
// BufferSize, which only governs the encode path; callers constructing a
// Writer must also call validateBufferSize.
func (o Options) validate(profile codec.Profile) error {
	if o.NumThreads > runtime.NumCPU()*maxThreadsPerCPU {
		return fmt.Errorf("%w: num_threads %d exceeds %d*cpu_count (%d)",
			errs.ErrConfiguration, o.NumThreads, maxThreadsPerCPU, runtime.NumCPU())
	}

	if o.DictSizeOverride != 0 && profile.Independent {
		return fmt.Errorf("%w: dict_size_override set on independent-block format %q", errs.ErrConfiguration, profile.Format)
	}
	if o.DictSizeOverride < 0 {
		return fmt.Errorf("%w: dict_size_override %d must be non-negative", errs.ErrConfiguration, o.DictSizeOverride)
	}

	return nil
}

// validateBufferSize checks the resolved buffer size against profile's
// ceiling. It is only meaningful on the encode path (NewWriter): decoding
// splits the source by the format's own on-wire framing and never
// consults BufferSize at all, so NewReader/NewBlockReader must not call
// this — a default BufferSize that happens to exceed a block format's
// MaxInput (e.g. BGZF's 65280-byte cap versus DefaultBufferSize's 128 KiB)
// would otherwise reject every decode of a file this module didn't even
// write.
func (o Options) validateBufferSize(profile codec.Profile) error {
	bufSize := o.bufferSize(profile)
	maxBuf := maxGenericBufferSize
	if profile.MaxInput > 0 {
		maxBuf = profile.MaxInput
	}
	if bufSize <= 0 || bufSize > maxBuf {
		return fmt.Errorf("%w: buffer_size %d out of range (0, %d]", errs.ErrConfiguration, bufSize, maxBuf)
	}
	return nil
}
