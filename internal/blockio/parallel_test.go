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
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gochunk/parazip/internal/codec"
	"github.com/gochunk/parazip/internal/errs"
)

// frameBlocks encodes each chunk independently (no dictionary hand-off,
// matching what a BlockAdapter format requires) and appends the format's
// terminal footer, producing a stream a BlockAdapter reader can split.
func frameBlocks(t *testing.T, adapter codec.BlockAdapter, chunks [][]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	if h := adapter.Header(); h != nil {
		out.Write(h)
	}
	for _, chunk := range chunks {
		c, err := adapter.NewCodec()
		if err != nil {
			t.Fatalf("NewCodec: %v", err)
		}
		var buf bytes.Buffer
		if err := c.Encode(&buf, chunk, nil); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		out.Write(buf.Bytes())
	}
	if f := adapter.Footer(codec.Aggregate{}); f != nil {
		out.Write(f)
	}
	return out.Bytes()
}

func TestParallelBlockReaderRoundTrip(t *testing.T) {
	t.Parallel()

	adapter, err := codec.NewBlockAdapter(codec.BGZF, 0)
	if err != nil {
		t.Fatalf("NewBlockAdapter: %v", err)
	}

	chunks := [][]byte{
		bytes.Repeat([]byte("reader fixture one. "), 150),
		bytes.Repeat([]byte("reader fixture two. "), 90),
		[]byte("final short block"),
	}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}
	framed := frameBlocks(t, adapter, chunks)

	p := NewParallel(bytes.NewReader(framed), adapter, 4)
	got, err := io.ReadAll(p)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestParallelBlockReaderMissingEOFIsSurfacedAfterData(t *testing.T) {
	t.Parallel()

	adapter, err := codec.NewBlockAdapter(codec.BGZF, 0)
	if err != nil {
		t.Fatalf("NewBlockAdapter: %v", err)
	}
	chunks := [][]byte{[]byte("only block, no terminal eof member")}
	framed := frameBlocks(t, adapter, chunks)
	// frameBlocks already appended the footer; strip it to simulate
	// truncation.
	footer := adapter.Footer(codec.Aggregate{})
	framed = framed[:len(framed)-len(footer)]

	p := NewParallel(bytes.NewReader(framed), adapter, 2)
	got, err := io.ReadAll(p)
	if !errors.Is(err, errs.ErrMissingEOF) {
		t.Errorf("err = %v, want ErrMissingEOF", err)
	}
	if string(got) != "only block, no terminal eof member" {
		t.Errorf("got = %q, want the block content preceding the missing EOF", got)
	}
}

func TestParallelBlockReaderSurfacesFramingError(t *testing.T) {
	t.Parallel()

	adapter, err := codec.NewBlockAdapter(codec.BGZF, 0)
	if err != nil {
		t.Fatalf("NewBlockAdapter: %v", err)
	}
	garbage := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 8)

	p := NewParallel(bytes.NewReader(garbage), adapter, 2)
	_, err = io.ReadAll(p)
	if err == nil {
		t.Fatal("ReadAll succeeded on garbage input, want an error")
	}
}
