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

package pipeline

import (
	"bytes"
	"io"

	"github.com/gochunk/parazip/internal/chunk"
	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/errs"
)

// Sync is the single-threaded compressor of spec.md §4.4: the same
// chunker and the same per-format Codec, but chunks are encoded and
// written to the sink inline, on the caller's goroutine, with no worker
// pool and no reordering since nothing ever arrives out of order. It
// exists for num_threads=1 and for callers on a platform where spinning up
// goroutine pools is wasteful for small inputs, matching the "falls back
// to a single-threaded path" note of spec.md §5.
type Sync struct {
	sink    io.Writer
	adapter codec.Adapter
	chunker *chunk.Chunker
	codec   codec.Codec

	err       error
	finished  bool
	wroteHead bool
	agg       codec.Aggregate
	sizes     []int
	buf       bytes.Buffer
}

// NewSync constructs a Sync compressor writing framed blocks to sink.
func NewSync(sink io.Writer, adapter codec.Adapter, bufferSize int) (*Sync, error) {
	c, err := adapter.NewCodec()
	if err != nil {
		return nil, err
	}
	profile := adapter.Profile()
	return &Sync{
		sink:    sink,
		adapter: adapter,
		chunker: chunk.New(bufferSize, profile.DictSize, profile.MaxInput),
		codec:   c,
	}, nil
}

func (s *Sync) dispatch(item chunk.Item) error {
	if s.err != nil {
		return s.err
	}
	if !s.wroteHead {
		if h := s.adapter.Header(); len(h) > 0 {
			if _, err := s.sink.Write(h); err != nil {
				s.err = &errs.SinkError{Cause: err}
				return s.err
			}
		}
		s.wroteHead = true
	}

	s.buf.Reset()
	if err := s.codec.Encode(&s.buf, item.Data, item.DictTail); err != nil {
		s.err = err
		return err
	}
	if s.buf.Len() > 0 {
		if _, err := s.sink.Write(s.buf.Bytes()); err != nil {
			s.err = &errs.SinkError{Cause: err}
			return s.err
		}
	}
	s.agg.UncompressedSize += uint64(len(item.Data))
	s.agg.BlockCount++
	s.sizes = append(s.sizes, s.buf.Len())
	return nil
}

// Write feeds b to the chunker, encoding and writing complete chunks
// inline as they seal.
func (s *Sync) Write(b []byte) (int, error) {
	if s.finished {
		return 0, errs.ErrAfterFinish
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.chunker.Write(b, s.dispatch)
}

// Flush seals and writes whatever partial chunk is buffered. Since
// encoding happens inline, every block is already on the sink by the time
// Flush returns.
func (s *Sync) Flush() error {
	if s.finished {
		return errs.ErrAfterFinish
	}
	if err := s.chunker.Flush(s.dispatch); err != nil {
		return err
	}
	return s.err
}

// Finish flushes, writes the file-level footer (if any), and marks the
// compressor finished. It is idempotent after a successful call.
func (s *Sync) Finish() error {
	if s.finished {
		return s.err
	}
	ferr := s.Flush()
	s.finished = true
	if ferr != nil {
		return ferr
	}
	if s.err != nil {
		return s.err
	}
	if !s.wroteHead {
		if h := s.adapter.Header(); len(h) > 0 {
			if _, err := s.sink.Write(h); err != nil {
				s.err = &errs.SinkError{Cause: err}
				return s.err
			}
		}
		s.wroteHead = true
	}
	if f := s.adapter.Footer(s.agg); len(f) > 0 {
		if _, err := s.sink.Write(f); err != nil {
			s.err = &errs.SinkError{Cause: err}
			return s.err
		}
	}
	return nil
}

// Close marks the compressor finished without writing a footer, for
// symmetry with Parallel.Close when a caller aborts a stream early.
func (s *Sync) Close(cause error) error {
	if s.err == nil {
		if cause != nil {
			s.err = cause
		} else {
			s.err = errs.ErrAfterFinish
		}
	}
	s.finished = true
	return s.err
}

// Sizes returns the compressed size of every block written so far.
func (s *Sync) Sizes() []int {
	out := make([]int, len(s.sizes))
	copy(out, s.sizes)
	return out
}

// UncompressedSize returns the running total of uncompressed bytes written.
func (s *Sync) UncompressedSize() uint64 {
	return s.agg.UncompressedSize
}
