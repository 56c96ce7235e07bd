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

package codec

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/gochunk/parazip/internal/errs"
)

// BlockAdapter is the decompression-side capability set for independent-
// block formats (BGZF, Mgzip): every block is self-delimiting, so a reader
// can split the source into blocks without a worker ever touching it.
//
// BGZF and Mgzip delimit blocks differently. BGZF's FEXTRA subfield
// carries the total on-wire block length directly (BSIZE), so ReadBlock
// can peek the fixed header, compute the length, and read exactly that
// many bytes. Mgzip's FEXTRA instead carries the block's *uncompressed*
// length (spec.md §6), which gives no way to know where the compressed
// member ends without decoding it — so its ReadBlock drives a one-shot
// gzip.Reader with Multistream(false) over a teeByteReader to capture the
// exact bytes consumed, then hands that slice to the worker pool to
// decode a second time. The duplicated decode is the honest cost of a
// format whose framing field doesn't carry what a byte-level splitter
// needs; it still parallelizes across blocks, just not the split step.
type BlockAdapter interface {
	Adapter

	// ReadBlock reads exactly one complete framed block from r, returning
	// its raw on-wire bytes. isEOF reports whether the block is this
	// format's terminal sentinel (BGZF only); such a block is consumed
	// but never returned for decoding. A clean end of stream (no bytes
	// available) returns io.EOF; a stream that ends mid-block returns a
	// FramingError.
	ReadBlock(r *bufio.Reader) (block []byte, isEOF bool, err error)

	// NewDecoder constructs one reusable decoder.
	NewDecoder() (Decoder, error)
}

// Decoder is a reusable, single-owner per-worker decoder, the
// decompression mirror of Codec.
type Decoder interface {
	Decode(dst *bytes.Buffer, block []byte) error
}

// NewBlockAdapter resolves a format tag to a BlockAdapter. Formats without
// block-parallel decompression (Gzip, Zlib, RawDeflate, Snappy) report
// ErrConfiguration, per spec.md §4.5 ("applicable only to independent-block
// formats").
func NewBlockAdapter(format string, level int) (BlockAdapter, error) {
	a, err := New(format, level)
	if err != nil {
		return nil, err
	}
	ba, ok := a.(BlockAdapter)
	if !ok {
		return nil, fmt.Errorf("%w: format %q has no block-parallel decompressor", errs.ErrConfiguration, format)
	}
	return ba, nil
}
