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
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/gochunk/parazip/internal/chunk"
	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/errs"
)

// Parallel is the ordered fan-out/fan-in compressor engine of spec.md §4.3:
// a chunker feeding a bounded dispatch channel, a fixed pool of worker
// goroutines each owning one reusable codec.Codec, and a single writer
// goroutine that reassembles completed blocks in index order before they
// ever touch the sink.
//
// Grounded on other_examples' klauspost-pgzip gzip.go, whose Writer runs
// the identical shape: a compress() producer, a fixed worker pool, and a
// single goroutine serializing results back into order via a
// next-expected counter and a pending-results map, with a per-block
// notifyWritten channel letting Flush/Close block until their own blocks
// have actually reached the underlying writer.
type Parallel struct {
	sink    io.Writer
	adapter codec.Adapter
	chunker *chunk.Chunker

	dispatchCh   chan dispatchItem
	completionCh chan completionItem
	workersDone  chan struct{}
	writerDone   chan struct{}

	pinAt      int
	pinOffsets []int

	mu        sync.Mutex
	err       error
	finished  bool
	lastDone  chan struct{}
	sizes     []int
	agg       codec.Aggregate
	wroteHead bool
}

// NewParallel constructs a Parallel pipeline writing framed blocks to sink.
// bufferSize is the target uncompressed chunk size; workers is the worker
// pool size (at least 1); pinAt, when >= 0, asks each worker to lock itself
// to its own OS thread via runtime.LockOSThread as a best-effort affinity
// hint (see SPEC_FULL.md's CPU pinning note: true affinity pinning needs a
// syscall this module's dependency set does not carry).
func NewParallel(sink io.Writer, adapter codec.Adapter, bufferSize, workers, pinAt int) *Parallel {
	if workers < 1 {
		workers = 1
	}
	profile := adapter.Profile()

	p := &Parallel{
		sink:        sink,
		adapter:     adapter,
		chunker:     chunk.New(bufferSize, profile.DictSize, profile.MaxInput),
		workersDone: make(chan struct{}),
		writerDone:  make(chan struct{}),
		pinAt:       pinAt,
	}
	// A small amount of slack past the worker count lets producers keep
	// dispatching while all workers are busy, rather than stalling the
	// instant the pool fills.
	slack := workers
	p.dispatchCh = make(chan dispatchItem, workers+slack)
	p.completionCh = make(chan completionItem, workers+slack)

	if pinAt >= 0 {
		p.pinOffsets = make([]int, workers)
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.runWorker(&wg, i, pinAt)
	}
	go func() {
		wg.Wait()
		close(p.completionCh)
		close(p.workersDone)
	}()
	go p.runWriter()

	return p
}

func (p *Parallel) runWorker(wg *sync.WaitGroup, slot int, pinAt int) {
	defer wg.Done()
	if pinAt >= 0 {
		// Best-effort only: LockOSThread pins this goroutine to the OS
		// thread for its lifetime, which at least stops the scheduler
		// from migrating mid-chunk work, but it is not true CPU-core
		// affinity. The thread is released when the goroutine (and so
		// the pool) exits. The starting index plus this worker's slot is
		// recorded on p for introspection/logging even though it is
		// never passed to a syscall.
		runtime.LockOSThread()
		p.pinOffsets[slot] = pinAt + slot
	}

	c, err := p.adapter.NewCodec()
	if err != nil {
		p.setErr(err)
		// Still drain dispatchCh so the producer never blocks forever
		// on a pool that failed to start.
		for item := range p.dispatchCh {
			p.completionCh <- completionItem{index: item.index, err: err, done: item.done}
		}
		return
	}

	var buf bytes.Buffer
	for item := range p.dispatchCh {
		ci := completionItem{index: item.index, inputLen: len(item.data), done: item.done}
		if already := p.getErr(); already != nil {
			// A prior block (or the sink) already failed; skip the
			// needless encode but still retire the item so anything
			// waiting on its done channel unblocks.
			ci.err = already
		} else {
			buf.Reset()
			if err := c.Encode(&buf, item.data, item.dictTail); err != nil {
				ci.err = err
			} else {
				block := make([]byte, buf.Len())
				copy(block, buf.Bytes())
				ci.block = block
			}
		}
		p.completionCh <- ci
	}
}

// runWriter is the sole goroutine that ever touches p.sink. It reassembles
// completed blocks in strict index order, writing each as soon as it (and
// everything before it) is available, exactly like pgzip's writer
// goroutine.
func (p *Parallel) runWriter() {
	defer close(p.writerDone)

	next := int64(0)
	pending := make(map[int64]completionItem)

	retire := func(ci completionItem) {
		if ci.err != nil {
			p.setErr(ci.err)
		} else if p.getErr() == nil {
			if !p.wroteHead {
				if h := p.adapter.Header(); len(h) > 0 {
					if _, err := p.sink.Write(h); err != nil {
						p.setErr(&errs.SinkError{Cause: err})
					}
				}
				p.wroteHead = true
			}
			if p.getErr() == nil && len(ci.block) > 0 {
				if _, err := p.sink.Write(ci.block); err != nil {
					p.setErr(&errs.SinkError{Cause: err})
				}
			}
			if p.getErr() == nil {
				p.mu.Lock()
				p.agg.UncompressedSize += uint64(ci.inputLen)
				p.agg.BlockCount++
				p.sizes = append(p.sizes, len(ci.block))
				p.mu.Unlock()
			}
		}
		if ci.done != nil {
			close(ci.done)
		}
	}

	for ci := range p.completionCh {
		pending[ci.index] = ci
		for {
			item, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			retire(item)
			next++
		}
	}

	// completionCh is closed only after every worker has exited, which
	// only happens once the producer closes dispatchCh in Finish. At
	// that point every dispatched item has been retired above; write the
	// footer (and a lazily-never-written header, for formats whose
	// Header is non-nil but that saw zero chunks) unless an error was
	// already latched.
	if p.getErr() == nil {
		if !p.wroteHead {
			if h := p.adapter.Header(); len(h) > 0 {
				if _, err := p.sink.Write(h); err != nil {
					p.setErr(&errs.SinkError{Cause: err})
				}
			}
			p.wroteHead = true
		}
		if p.getErr() == nil {
			p.mu.Lock()
			agg := p.agg
			p.mu.Unlock()
			if f := p.adapter.Footer(agg); len(f) > 0 {
				if _, err := p.sink.Write(f); err != nil {
					p.setErr(&errs.SinkError{Cause: err})
				}
			}
		}
	}
}

func (p *Parallel) setErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

func (p *Parallel) getErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Parallel) dispatch(item chunk.Item) error {
	if err := p.getErr(); err != nil {
		return err
	}
	done := make(chan struct{})
	p.dispatchCh <- dispatchItem{index: item.Index, data: item.Data, dictTail: item.DictTail, done: done}
	p.mu.Lock()
	p.lastDone = done
	p.mu.Unlock()
	return nil
}

// Write implements the producer side of spec.md §4.2/§4.3: it feeds p to
// the chunker, sealing and dispatching complete chunks as thresholds are
// crossed. It never blocks on the sink directly, only on the bounded
// dispatch channel filling up.
func (p *Parallel) Write(b []byte) (int, error) {
	p.mu.Lock()
	finished := p.finished
	p.mu.Unlock()
	if finished {
		return 0, errs.ErrAfterFinish
	}
	if err := p.getErr(); err != nil {
		return 0, err
	}
	n, err := p.chunker.Write(b, p.dispatch)
	if err == nil {
		err = p.getErr()
	}
	return n, err
}

// Flush seals whatever partial chunk is buffered and blocks until every
// block dispatched so far — including ones from earlier Write calls that
// are still in flight — has reached the sink.
func (p *Parallel) Flush() error {
	p.mu.Lock()
	finished := p.finished
	p.mu.Unlock()
	if finished {
		return errs.ErrAfterFinish
	}
	if err := p.chunker.Flush(p.dispatch); err != nil {
		return err
	}
	p.mu.Lock()
	last := p.lastDone
	p.mu.Unlock()
	if last != nil {
		<-last
	}
	return p.getErr()
}

// Finish flushes, then closes the dispatch channel (the pipeline's
// cancellation/shutdown primitive) so every worker exits, waits for the
// writer to drain, write the footer, and exit, and returns the first
// latched error, if any. It is idempotent: calling Finish again after a
// successful Finish is a no-op.
func (p *Parallel) Finish() error {
	p.mu.Lock()
	if p.finished {
		err := p.err
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	ferr := p.Flush()

	p.mu.Lock()
	p.finished = true
	p.mu.Unlock()

	close(p.dispatchCh)
	<-p.workersDone
	<-p.writerDone

	if ferr != nil {
		return ferr
	}
	return p.getErr()
}

// Close abandons the pipeline without writing a footer: it records the
// given error (if any error is not already latched), shuts the worker pool
// down, and joins every goroutine. It exists because Go has no destructors
// — callers that abort a stream early (instead of calling Finish) must
// call Close to release the pipeline's goroutines, mirroring the explicit
// Close the teacher's own Writer requires.
func (p *Parallel) Close(cause error) error {
	if cause != nil {
		p.setErr(cause)
	} else {
		p.setErr(fmt.Errorf("%w: closed before finish", errs.ErrAfterFinish))
	}
	p.mu.Lock()
	already := p.finished
	p.finished = true
	p.mu.Unlock()
	if already {
		return p.getErr()
	}
	close(p.dispatchCh)
	<-p.workersDone
	<-p.writerDone
	return p.getErr()
}

// Sizes returns the compressed size of every block written so far, in
// index order, for introspection parity with the teacher's dictzip header
// (and pgzip's block accounting).
func (p *Parallel) Sizes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.sizes))
	copy(out, p.sizes)
	return out
}

// UncompressedSize returns the running total of uncompressed bytes
// accepted into blocks that have already been written to the sink.
func (p *Parallel) UncompressedSize() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agg.UncompressedSize
}

// PinOffsets reports the OS-thread-lock starting index recorded by each
// worker, in worker-slot order, for callers that want to log or surface
// the pinning configuration actually in effect. It returns nil when
// pinning was disabled (PinAt < 0).
func (p *Parallel) PinOffsets() []int {
	if p.pinOffsets == nil {
		return nil
	}
	out := make([]int, len(p.pinOffsets))
	copy(out, p.pinOffsets)
	return out
}
