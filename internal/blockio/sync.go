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

package blockio

import (
	"bufio"
	"bytes"
	"io"

	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/errs"
)

// Sync is the single-threaded block decompressor of spec.md §4.5's last
// line ("a synchronous block decompressor with the same contract is
// provided for worker count ≤ 1"): same ReadBlock/Decode calls as
// Parallel, driven inline on the caller's goroutine with no reordering
// needed since nothing arrives out of order.
type Sync struct {
	br      *bufio.Reader
	adapter codec.BlockAdapter
	dec     codec.Decoder

	err        error
	missingEOF bool
	done       bool
	current    []byte
	buf        bytes.Buffer
}

// NewSync constructs a Sync block decompressor reading framed blocks from
// src.
func NewSync(src io.Reader, adapter codec.BlockAdapter) (*Sync, error) {
	dec, err := adapter.NewDecoder()
	if err != nil {
		return nil, err
	}
	return &Sync{br: bufio.NewReader(src), adapter: adapter, dec: dec}, nil
}

func (s *Sync) fill() error {
	block, isEOF, err := s.adapter.ReadBlock(s.br)
	if err != nil {
		if err == io.EOF {
			s.done = true
			if s.adapter.Profile().HasFileFooter {
				s.missingEOF = true
			}
			return nil
		}
		s.err = err
		return err
	}
	if isEOF {
		s.done = true
		return nil
	}

	s.buf.Reset()
	if err := s.dec.Decode(&s.buf, block); err != nil {
		s.err = err
		return err
	}
	s.current = append(s.current[:0], s.buf.Bytes()...)
	return nil
}

// Read implements io.Reader with the same terminal-error contract as
// Parallel.Read.
func (s *Sync) Read(b []byte) (int, error) {
	for len(s.current) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.done {
			if s.missingEOF {
				return 0, errs.ErrMissingEOF
			}
			return 0, io.EOF
		}
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(b, s.current)
	s.current = s.current[n:]
	return n, nil
}
