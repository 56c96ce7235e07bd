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

// Package codec implements the per-format codec adapter capability set
// described by the chunking/parallel-pipeline design: given a raw input
// chunk plus an optional prior-chunk dictionary tail, produce one framed
// output block, along with any file-level header/footer the format needs.
//
// Each Adapter is stateless and safe to share; each worker obtains its own
// Codec from NewCodec and reuses it, resetting between chunks, to avoid
// per-chunk allocator traffic.
package codec

import (
	"bytes"
	"fmt"

	"github.com/gochunk/parazip/internal/errs"
)

// Format name constants. These are the on-the-wire format identifiers used
// throughout the internal packages; the root package's Format type maps
// onto these strings.
const (
	Gzip       = "gzip"
	Zlib       = "zlib"
	RawDeflate = "deflate"
	Snappy     = "snappy"
	Mgzip      = "mgzip"
	BGZF       = "bgzf"
)

// Profile carries the format-fixed invariants the chunker and pipeline must
// honor for a given format (the "Codec profile" table).
type Profile struct {
	Format string

	// DictSize is the number of trailing bytes of the previous input chunk
	// to hand to the codec as dictionary context. Zero means the format
	// does not use one.
	DictSize int

	// MaxInput is the largest permitted input chunk size, or zero for
	// unbounded.
	MaxInput int

	// Independent reports whether blocks must be decodable in isolation,
	// which forbids dictionary hand-off across chunk boundaries.
	Independent bool

	// HasFileFooter reports whether Footer ever emits bytes for this
	// format (only BGZF's terminal EOF member today).
	HasFileFooter bool

	MinLevel, MaxLevel, DefaultLevel int
}

// Aggregate is the running state accumulated by the writer, in index order,
// across all chunks submitted so far. Only BGZF's footer uses it today (and
// does not need it, since the EOF member is constant), but the capability
// is part of the adapter contract per the design so future formats with a
// genuine whole-file trailer (a combined checksum, a total length) can use
// it without changing the pipeline.
type Aggregate struct {
	UncompressedSize uint64
	BlockCount       int
}

// Codec is a reusable, single-owner per-worker encoder. It is created once
// per worker by Adapter.NewCodec and reused across every chunk that worker
// handles.
type Codec interface {
	// Encode compresses input, using dictTail as dictionary context when
	// the format's Profile requests one, and appends the complete framed
	// block to dst. dst is not reset by Encode; callers reset or replace
	// it between calls.
	Encode(dst *bytes.Buffer, input, dictTail []byte) error
}

// Adapter is the per-format strategy: a value type implementing the
// capability set, not a class hierarchy. The builder resolves a format tag
// to one of these via New.
type Adapter interface {
	Profile() Profile

	// NewCodec constructs one reusable encoder at the adapter's
	// compression level.
	NewCodec() (Codec, error)

	// Header returns the bytes to write once, before any chunk, or nil.
	Header() []byte

	// Footer returns the bytes to write once, after every chunk, derived
	// from the in-order aggregate state, or nil.
	Footer(agg Aggregate) []byte
}

// New resolves a format tag and compression level to an Adapter. A level
// of 0, or one outside the format's [MinLevel, MaxLevel] range, is
// resolved to the format's default level by each adapter constructor;
// in-range negative levels (flate.HuffmanOnly, flate.DefaultCompression)
// are kept as given. Snappy ignores the level.
func New(format string, level int) (Adapter, error) {
	switch format {
	case Gzip:
		return newGzipAdapter(level)
	case Zlib:
		return newZlibAdapter(level)
	case RawDeflate:
		return newDeflateAdapter(level)
	case Snappy:
		return newSnappyAdapter()
	case Mgzip:
		return newMgzipAdapter(level)
	case BGZF:
		return newBGZFAdapter(level)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", errs.ErrConfiguration, format)
	}
}
