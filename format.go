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

// Package parazip implements order-preserving parallel compression and
// decompression of byte streams: a fan-out/ordered-merge pipeline that
// compresses fixed-size input chunks across a worker pool while writing
// the framed output in the exact order the chunks were submitted.
//
// Gzip, Zlib, and RawDeflate frame every chunk as its own complete
// member with no cross-chunk dictionary by default; a dictionary tail
// carried over from the previous chunk is used only when
// Options.DictSizeOverride asks for one. Snappy, Mgzip, and BGZF frame
// every chunk as an independently decodable block and never use a
// dictionary; Mgzip and BGZF additionally support parallel decompression
// via [NewBlockReader].
package parazip

import "github.com/gochunk/parazip/internal/codec"

// Format selects the on-wire compression format. The zero value is not a
// valid Format; use one of the named constants.
type Format string

// Supported formats, matching spec.md §3's format table.
const (
	Gzip       Format = Format(codec.Gzip)
	Zlib       Format = Format(codec.Zlib)
	RawDeflate Format = Format(codec.RawDeflate)
	Snappy     Format = Format(codec.Snappy)
	Mgzip      Format = Format(codec.Mgzip)
	BGZF       Format = Format(codec.BGZF)
)

// SupportsParallelDecompression reports whether f's blocks carry enough
// framing to split and decode on a worker pool (Mgzip, BGZF). Gzip, Zlib,
// RawDeflate, and Snappy are non-block or non-self-delimiting for this
// purpose and can only be decompressed sequentially (see [NewReader]).
func (f Format) SupportsParallelDecompression() bool {
	switch f {
	case Mgzip, BGZF:
		return true
	default:
		return false
	}
}

func (f Format) String() string {
	return string(f)
}
