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

// Package pipeline implements the ordered fan-out/fan-in compressor engine
// (spec.md §4.3) and its single-threaded counterpart (spec.md §4.4). Both
// expose the same method set (Write, Flush, Finish, Sizes,
// UncompressedSize) so the root package can type-erase between them behind
// one interface.
package pipeline

// dispatchItem travels from the producer (the chunker, driven by Write or
// Flush) to a worker. done is closed by the writer once the corresponding
// block — or, on error, its discard — has been retired, letting Flush
// block until every block it's responsible for has reached the sink.
type dispatchItem struct {
	index    int64
	data     []byte
	dictTail []byte
	done     chan struct{}
}

// completionItem travels from a worker to the single writer goroutine.
type completionItem struct {
	index int64
	block []byte
	err   error
	// inputLen is carried separately from data because workers discard
	// their copy of the input chunk once encoded; it lets the writer
	// update the uncompressed-size aggregate without retaining chunks.
	inputLen int
	done     chan struct{}
}
