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

// Package blockio implements the parallel and synchronous block
// decompressors of spec.md §4.5: readers over independent-block formats
// (BGZF, Mgzip) that split the source into framed blocks and hand them to
// a worker pool, reassembling decoded bytes in source order before they
// reach the caller.
package blockio

// readItem travels from the reader goroutine to a worker.
type readItem struct {
	index int64
	block []byte
}

// decodedItem travels from a worker to the emitter.
type decodedItem struct {
	index int64
	data  []byte
	err   error
}
