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

// SequentialAdapter is implemented by Gzip, Zlib, and RawDeflate: formats
// with no on-wire index or length field marking member boundaries, so a
// reader has no way to split the stream into blocks for a worker pool the
// way BlockAdapter's formats do. By default each member is independent
// (see simple.go), but a caller may opt into cross-chunk dictionary
// priming via Options.DictSizeOverride, in which case decoding a member
// also needs the previous member's plaintext tail. Either way, members
// must be read one at a time, in order — there is no block-parallel
// decompressor for these formats, only the symmetric one
// NewSequentialAdapter resolves.
type SequentialAdapter interface {
	Adapter
	NewSequentialDecoder() SequentialDecoder
}

// SequentialDecoder decodes one dictionary-chained stream member at a
// time from a shared *bufio.Reader, appending decoded plaintext to dst.
// dictTail is the previous member's plaintext tail, capped to the
// format's Profile.DictSize, or nil for the first member. Next returns
// io.EOF when the source is exhausted exactly at a member boundary.
type SequentialDecoder interface {
	Next(r *bufio.Reader, dst *bytes.Buffer, dictTail []byte) error
}

// NewSequentialAdapter resolves format/level to a SequentialAdapter, or
// ErrConfiguration if the format's blocks don't chain this way (Snappy,
// Mgzip, BGZF — all independent-block formats with no dictionary to
// replay).
func NewSequentialAdapter(format string, level int) (SequentialAdapter, error) {
	a, err := New(format, level)
	if err != nil {
		return nil, err
	}
	sa, ok := a.(SequentialAdapter)
	if !ok {
		return nil, fmt.Errorf("%w: format %q has no sequential decompressor", errs.ErrConfiguration, format)
	}
	return sa, nil
}
