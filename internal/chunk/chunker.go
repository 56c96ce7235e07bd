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

// Package chunk implements the input chunker (spec.md §4.2): it slices a
// sequential write stream into fixed-size, strictly-indexed chunks,
// attaching a dictionary tail from the previous chunk when the codec in
// use requests one.
package chunk

// Item is one sealed chunk ready for dispatch to a worker: a logical index
// assigned strictly monotonically, the chunk's owned bytes, and an optional
// dictionary tail copied from the end of the previous chunk.
type Item struct {
	Index    int64
	Data     []byte
	DictTail []byte
}

// Dispatcher hands a sealed Item off to the next stage (the worker pool, or
// directly to a synchronous encoder). It is the chunker's only back-pressure
// mechanism: a Dispatcher that blocks (e.g. a bounded channel send) makes
// Chunker.Write block too, per spec.md §4.2 ("does not block unless the
// worker-pool hand-off back-pressures").
type Dispatcher func(Item) error

// Chunker buffers bytes until a chunk reaches Size, then seals it, assigns
// the next index, and hands it to a Dispatcher together with a dictionary
// tail when the codec wants one (DictSize > 0).
type Chunker struct {
	// Size is the target chunk length. New caps a requested size larger
	// than maxInput to maxInput, implementing the "BGZF special rule" of
	// spec.md §4.2 (parazip.NewWriter itself rejects such a buffer_size
	// with ErrConfiguration before a Chunker is built).
	Size int

	// DictSize is the number of trailing bytes of the just-sealed chunk to
	// carry forward as dictionary context for the next chunk. Zero
	// disables dictionary hand-off (independent-block formats).
	DictSize int

	cur      []byte
	prevTail []byte
	nextIdx  int64
}

// New constructs a Chunker. maxInput of 0 means unbounded.
func New(size, dictSize, maxInput int) *Chunker {
	if maxInput > 0 && size > maxInput {
		size = maxInput
	}
	return &Chunker{Size: size, DictSize: dictSize}
}

// Write appends p to the current chunk, sealing and dispatching complete
// chunks as the threshold is crossed. It returns len(p) unless dispatch
// fails, per the "never short-writes" contract of spec.md §4.2; any error
// returned by dispatch short-circuits and is returned as-is.
func (c *Chunker) Write(p []byte, dispatch Dispatcher) (int, error) {
	written := 0
	for len(p) > 0 {
		room := c.Size - len(c.cur)
		n := len(p)
		if n > room {
			n = room
		}
		c.cur = append(c.cur, p[:n]...)
		p = p[n:]
		written += n

		if len(c.cur) >= c.Size {
			if err := c.seal(dispatch); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Flush seals whatever partial chunk is currently buffered and dispatches
// it. Per spec.md's Open Question (b), calling
// Flush when nothing is buffered is a no-op: no block is emitted.
func (c *Chunker) Flush(dispatch Dispatcher) error {
	if len(c.cur) == 0 {
		return nil
	}
	return c.seal(dispatch)
}

func (c *Chunker) seal(dispatch Dispatcher) error {
	data := c.cur
	c.cur = nil

	item := Item{Index: c.nextIdx, Data: data}
	if c.DictSize > 0 && len(c.prevTail) > 0 {
		item.DictTail = c.prevTail
	}
	c.nextIdx++

	if c.DictSize > 0 {
		if len(data) >= c.DictSize {
			tail := make([]byte, c.DictSize)
			copy(tail, data[len(data)-c.DictSize:])
			c.prevTail = tail
		} else if len(data) > 0 {
			tail := make([]byte, len(data))
			copy(tail, data)
			c.prevTail = tail
		}
	}

	return dispatch(item)
}
