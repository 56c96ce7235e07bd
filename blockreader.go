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
	"io"

	"github.com/gochunk/parazip/internal/blockio"
	"github.com/gochunk/parazip/internal/codec"
)

// BlockReader is the polymorphic block decompressor handle of spec.md
// §4.5/§4.6: an [io.Reader] over the decoded bytes of a BGZF or Mgzip
// stream, backed by either the parallel block decompressor or its
// synchronous counterpart depending on Options. The zero value is not
// usable; construct one with [NewBlockReader].
type BlockReader struct {
	io.Reader
}

// NewBlockReader builds a BlockReader for opts.Format, reading framed
// blocks from src. opts.Format must support parallel decompression (see
// [Format.SupportsParallelDecompression]); Gzip, Zlib, RawDeflate, and
// Snappy return ErrConfiguration, since their blocks aren't
// self-delimiting without decoding the whole stream sequentially.
//
// If opts.NumThreads is 0 or 1, decoding runs synchronously on the
// caller's goroutine as Read is called; otherwise a reader goroutine and
// opts.NumThreads worker goroutines start immediately and run ahead of
// the caller, bounded by the internal channel capacity.
func NewBlockReader(src io.Reader, opts Options) (*BlockReader, error) {
	adapter, err := codec.NewBlockAdapter(string(opts.Format), opts.Level)
	if err != nil {
		return nil, err
	}
	if err := opts.validate(adapter.Profile()); err != nil {
		return nil, err
	}

	if opts.NumThreads <= 1 {
		s, err := blockio.NewSync(src, adapter)
		if err != nil {
			return nil, err
		}
		return &BlockReader{Reader: s}, nil
	}

	return &BlockReader{Reader: blockio.NewParallel(src, adapter, opts.NumThreads)}, nil
}
