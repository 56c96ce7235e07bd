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

	"github.com/golang/snappy"

	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/streamio"
)

// NewReader builds a decompressor for opts.Format, choosing the decode
// strategy each format actually supports:
//
//   - Gzip, Zlib, RawDeflate are read one member at a time. By default
//     each member is fully independent (no cross-chunk dictionary), so
//     this is just a multi-member replay; with Options.DictSizeOverride
//     set to match how the stream was written, each member's dictionary
//     is instead the previous member's decoded plaintext, which makes
//     decoding inherently sequential.
//   - Snappy decodes the framed-snappy stream directly with
//     [snappy.Reader]: framed snappy is already self-delimiting and
//     carries no cross-chunk dictionary, so the upstream decoder handles
//     it in one pass.
//   - Mgzip and BGZF delegate to [NewBlockReader], which honors
//     opts.NumThreads for parallel decompression.
func NewReader(src io.Reader, opts Options) (io.Reader, error) {
	if opts.Format == Snappy {
		return snappy.NewReader(src), nil
	}
	if opts.Format.SupportsParallelDecompression() {
		return NewBlockReader(src, opts)
	}

	adapter, err := codec.NewSequentialAdapter(string(opts.Format), opts.Level)
	if err != nil {
		return nil, err
	}
	if err := opts.validate(adapter.Profile()); err != nil {
		return nil, err
	}
	if opts.DictSizeOverride > 0 {
		adapter = &dictOverrideSequentialAdapter{SequentialAdapter: adapter, size: opts.DictSizeOverride}
	}
	return streamio.NewSync(src, adapter), nil
}

// dictOverrideSequentialAdapter mirrors dictOverrideAdapter (writer.go)
// for the decode path: a stream encoded with a non-default
// Options.DictSizeOverride can only be replayed correctly if NewReader is
// told the same override, since the dictionary a chunk's back-references
// resolve against isn't recoverable from the stream itself.
type dictOverrideSequentialAdapter struct {
	codec.SequentialAdapter
	size int
}

func (a *dictOverrideSequentialAdapter) Profile() codec.Profile {
	p := a.SequentialAdapter.Profile()
	p.DictSize = a.size
	return p
}
