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

// Package streamio decodes the member-chained formats (Gzip, Zlib,
// RawDeflate): their members carry no on-wire length, so members must be
// read one at a time off a shared reader regardless of whether a
// cross-chunk dictionary is in play, and there is no parallel counterpart
// to internal/blockio here, only the sequential replay Sync provides.
package streamio

import (
	"bufio"
	"bytes"
	"io"

	"github.com/gochunk/parazip/internal/codec"
)

// Sync sequentially decodes a stream member by member. When dictSize is
// zero (the default profile) prevTail is always nil and this is a plain
// multi-member replay; when a caller's Options.DictSizeOverride set
// dictSize > 0, each member's own decoded plaintext tail is fed forward
// as the next member's dictionary — the exact mirror of the chunker/codec
// hand-off pipeline.Sync and pipeline.Parallel perform on encode.
type Sync struct {
	r        *bufio.Reader
	decoder  codec.SequentialDecoder
	dictSize int

	prevTail []byte
	buf      bytes.Buffer
	eof      bool
}

// NewSync constructs a Sync reading framed members from src.
func NewSync(src io.Reader, adapter codec.SequentialAdapter) *Sync {
	return &Sync{
		r:        bufio.NewReader(src),
		decoder:  adapter.NewSequentialDecoder(),
		dictSize: adapter.Profile().DictSize,
	}
}

func (s *Sync) fill() error {
	if s.eof {
		return io.EOF
	}
	s.buf.Reset()
	if err := s.decoder.Next(s.r, &s.buf, s.prevTail); err != nil {
		if err == io.EOF {
			s.eof = true
		}
		return err
	}

	if s.dictSize > 0 {
		plain := s.buf.Bytes()
		tail := plain
		if len(tail) > s.dictSize {
			tail = tail[len(tail)-s.dictSize:]
		}
		dup := make([]byte, len(tail))
		copy(dup, tail)
		s.prevTail = dup
	}
	return nil
}

// Read implements io.Reader, decoding additional members as needed.
func (s *Sync) Read(b []byte) (int, error) {
	for s.buf.Len() == 0 {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	return s.buf.Read(b)
}
