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
	"sync"

	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/errs"
)

// Parallel is the block decompressor of spec.md §4.5: symmetric to
// pipeline.Parallel with roles inverted. One reader goroutine splits the
// source into framed blocks (codec.BlockAdapter.ReadBlock already knows
// how, per format), a fixed pool of workers decodes them, and a single
// emitter goroutine reassembles decoded bytes in source order before
// Read ever sees them.
//
// Grounded on other_examples' klauspost-pgzip gunzip.go, whose Reader
// drives an analogous background goroutine that feeds a channel the
// public Read method drains via a small "current remainder" buffer — the
// same buffering idiom used here for the emitter-to-Read handoff.
type Parallel struct {
	adapter codec.BlockAdapter

	outCh chan decodedItem

	mu         sync.Mutex
	err        error
	missingEOF bool

	current []byte
}

// NewParallel constructs a Parallel block decompressor reading framed
// blocks from src. workers is the decode pool size (at least 1).
func NewParallel(src io.Reader, adapter codec.BlockAdapter, workers int) *Parallel {
	if workers < 1 {
		workers = 1
	}
	p := &Parallel{adapter: adapter}

	br := bufio.NewReader(src)
	readCh := make(chan readItem, workers*2)
	decodeCh := make(chan decodedItem, workers*2)
	p.outCh = make(chan decodedItem, workers*2)

	go p.runReader(br, readCh)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.runWorker(&wg, readCh, decodeCh)
	}
	go func() {
		wg.Wait()
		close(decodeCh)
	}()
	go p.runEmitter(decodeCh)

	return p
}

func (p *Parallel) runReader(br *bufio.Reader, readCh chan<- readItem) {
	defer close(readCh)
	var index int64
	sawEOFBlock := false
	for {
		block, isEOF, err := p.adapter.ReadBlock(br)
		if err != nil {
			if err != io.EOF {
				p.setErr(err)
			}
			break
		}
		if isEOF {
			sawEOFBlock = true
			break
		}
		readCh <- readItem{index: index, block: block}
		index++
	}
	if !sawEOFBlock && p.adapter.Profile().HasFileFooter && p.getErr() == nil {
		p.mu.Lock()
		p.missingEOF = true
		p.mu.Unlock()
	}
}

func (p *Parallel) runWorker(wg *sync.WaitGroup, readCh <-chan readItem, decodeCh chan<- decodedItem) {
	defer wg.Done()
	dec, err := p.adapter.NewDecoder()
	if err != nil {
		p.setErr(err)
		for item := range readCh {
			decodeCh <- decodedItem{index: item.index, err: err}
		}
		return
	}
	var buf bytes.Buffer
	for item := range readCh {
		di := decodedItem{index: item.index}
		if already := p.getErr(); already != nil {
			di.err = already
		} else {
			buf.Reset()
			if err := dec.Decode(&buf, item.block); err != nil {
				di.err = err
			} else {
				out := make([]byte, buf.Len())
				copy(out, buf.Bytes())
				di.data = out
			}
		}
		decodeCh <- di
	}
}

func (p *Parallel) runEmitter(decodeCh <-chan decodedItem) {
	defer close(p.outCh)
	next := int64(0)
	pending := make(map[int64]decodedItem)
	for item := range decodeCh {
		pending[item.index] = item
		for {
			it, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if it.err != nil {
				p.setErr(it.err)
			}
			p.outCh <- it
			next++
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

// Read implements io.Reader. It delivers decoded bytes in source order.
// Once every block has been delivered, Read returns io.EOF unless the
// stream ended without the format's EOF sentinel, in which case it
// returns errs.ErrMissingEOF — a warning-level terminal error per
// spec.md §4.5 that does not retract any byte already delivered.
//
// A latched reader-level error (p.err) is only consulted once outCh
// closes with nothing left pending: the emitter already delivers any
// errored block in its correct position before closing outCh, so
// checking p.err up front could return it ahead of still-buffered,
// already-decoded blocks that precede it in source order.
func (p *Parallel) Read(b []byte) (int, error) {
	for len(p.current) == 0 {
		item, ok := <-p.outCh
		if !ok {
			if err := p.getErr(); err != nil {
				return 0, err
			}
			p.mu.Lock()
			missing := p.missingEOF
			p.mu.Unlock()
			if missing {
				return 0, errs.ErrMissingEOF
			}
			return 0, io.EOF
		}
		if item.err != nil {
			return 0, item.err
		}
		p.current = item.data
	}
	n := copy(b, p.current)
	p.current = p.current[n:]
	return n, nil
}
