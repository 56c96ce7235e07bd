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

	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/pipeline"
)

// writerBackend is the capability set both pipeline backends implement.
// Writer type-erases over it, per spec.md §4.6 and §9 ("a small tagged
// object suffices" rather than an inheritance hierarchy).
type writerBackend interface {
	Write([]byte) (int, error)
	Flush() error
	Finish() error
	Sizes() []int
	UncompressedSize() uint64
}

// Writer is the polymorphic compressor handle spec.md §4.6 describes: it
// presents sequential Write plus Flush plus Finish, backed by either the
// parallel pipeline or the synchronous compressor depending on Options.
// The zero value is not usable; construct one with [NewWriter].
type Writer struct {
	writerBackend
}

// NewWriter builds a Writer for opts.Format, writing framed blocks to
// dst. If opts.NumThreads is 0 or 1, the returned Writer runs the
// synchronous backend on the caller's goroutine; otherwise it spins up
// opts.NumThreads worker goroutines plus one writer goroutine and returns
// immediately, per spec.md §4.6.
//
// CPU pinning (opts.PinAt): the corpus this module draws its dependency
// stack from carries no CPU-affinity library (no golang.org/x/sys/unix,
// no comparable package), so true per-core pinning is out of reach
// without adding a dependency no example repo uses. When PinAt >= 0,
// workers instead call runtime.LockOSThread, which at least stops the Go
// scheduler from migrating a worker's goroutine across OS threads
// mid-chunk — a real but weaker guarantee than affinity, documented here
// rather than silently downgraded.
func NewWriter(dst io.Writer, opts Options) (*Writer, error) {
	adapter, err := codec.New(string(opts.Format), opts.Level)
	if err != nil {
		return nil, err
	}
	if err := opts.validate(adapter.Profile()); err != nil {
		return nil, err
	}
	if err := opts.validateBufferSize(adapter.Profile()); err != nil {
		return nil, err
	}
	if opts.DictSizeOverride > 0 {
		adapter = &dictOverrideAdapter{Adapter: adapter, size: opts.DictSizeOverride}
	}

	bufSize := opts.bufferSize(adapter.Profile())
	if opts.NumThreads <= 1 {
		s, err := pipeline.NewSync(dst, adapter, bufSize)
		if err != nil {
			return nil, err
		}
		return &Writer{writerBackend: s}, nil
	}

	pinAt := -1
	if opts.PinAt >= 0 {
		pinAt = opts.PinAt
	}
	p := pipeline.NewParallel(dst, adapter, bufSize, opts.NumThreads, pinAt)
	return &Writer{writerBackend: p}, nil
}

// Close is equivalent to Finish, for callers that prefer the
// [io.WriteCloser] idiom. It is idempotent after a successful call, like
// Finish.
func (w *Writer) Close() error {
	return w.Finish()
}

// dictOverrideAdapter composes a codec.Adapter with a replacement
// DictSize, the only field Options.DictSizeOverride affects. It exists
// instead of threading an override parameter through the pipeline
// constructors, keeping the "codec property, not a pipeline branch"
// design of spec.md §9 intact: DictSizeOverride is still just a Profile
// value, now supplied by composition rather than by the base adapter.
type dictOverrideAdapter struct {
	codec.Adapter
	size int
}

func (a *dictOverrideAdapter) Profile() codec.Profile {
	p := a.Adapter.Profile()
	p.DictSize = a.size
	return p
}
