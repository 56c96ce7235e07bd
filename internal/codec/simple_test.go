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

package codec

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// chunkAndEncode feeds chunks through a fresh Codec the way pipeline.Sync
// does, carrying the previous chunk's tail forward exactly like
// chunk.Chunker.seal, and returns the concatenated framed output.
func chunkAndEncode(t *testing.T, adapter Adapter, chunks [][]byte) []byte {
	t.Helper()
	c, err := adapter.NewCodec()
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	dictSize := adapter.Profile().DictSize

	var out bytes.Buffer
	if h := adapter.Header(); h != nil {
		out.Write(h)
	}
	var prevTail []byte
	for _, chunk := range chunks {
		var buf bytes.Buffer
		if err := c.Encode(&buf, chunk, prevTail); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		out.Write(buf.Bytes())

		if dictSize > 0 {
			tail := chunk
			if len(tail) > dictSize {
				tail = tail[len(tail)-dictSize:]
			}
			prevTail = tail
		}
	}
	return out.Bytes()
}

func decodeSequentially(t *testing.T, adapter SequentialAdapter, framed []byte) []byte {
	t.Helper()
	dec := adapter.NewSequentialDecoder()
	r := bufio.NewReader(bytes.NewReader(framed))

	var out bytes.Buffer
	var prevTail []byte
	dictSize := adapter.Profile().DictSize
	for {
		start := out.Len()
		err := dec.Next(r, &out, prevTail)
		if err != nil {
			break
		}
		if dictSize > 0 {
			tail := out.Bytes()[start:]
			if len(tail) > dictSize {
				tail = tail[len(tail)-dictSize:]
			}
			dup := make([]byte, len(tail))
			copy(dup, tail)
			prevTail = dup
		}
	}
	return out.Bytes()
}

func TestSimpleFormatsRoundTrip(t *testing.T) {
	t.Parallel()

	chunks := [][]byte{
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 100),
		bytes.Repeat([]byte("pack my box with five dozen liquor jugs. "), 50),
		[]byte("tail chunk"),
	}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	for _, format := range []string{Gzip, Zlib, RawDeflate} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			adapter, err := New(format, 0)
			if err != nil {
				t.Fatalf("New(%q): %v", format, err)
			}
			framed := chunkAndEncode(t, adapter, chunks)

			seq, err := NewSequentialAdapter(format, 0)
			if err != nil {
				t.Fatalf("NewSequentialAdapter(%q): %v", format, err)
			}
			got := decodeSequentially(t, seq, framed)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

// TestGzipRoundTripStdlibDecodable confirms that parazip's default,
// no-override Gzip output is not merely readable by gzipSeqDecoder but by
// compress/gzip's own multistream Reader, since each chunk is framed as an
// independent member with no cross-chunk dictionary. This is the concrete
// property spec.md §8 scenario 1 asks for.
func TestGzipRoundTripStdlibDecodable(t *testing.T) {
	t.Parallel()

	chunks := [][]byte{
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 100),
		bytes.Repeat([]byte("pack my box with five dozen liquor jugs. "), 50),
		[]byte("tail chunk"),
	}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	adapter, err := New(Gzip, 0)
	if err != nil {
		t.Fatalf("New(Gzip): %v", err)
	}
	framed := chunkAndEncode(t, adapter, chunks)

	zr, err := gzip.NewReader(bytes.NewReader(framed))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	zr.Multistream(true)
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("stdlib multistream read: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stdlib-decoded round trip (-want +got):\n%s", diff)
	}
}

func TestSnappyHasNoBlockOrSequentialDecoder(t *testing.T) {
	t.Parallel()

	if _, err := NewBlockAdapter(Snappy, 0); err == nil {
		t.Error("NewBlockAdapter(Snappy) succeeded, want error")
	}
	if _, err := NewSequentialAdapter(Snappy, 0); err == nil {
		t.Error("NewSequentialAdapter(Snappy) succeeded, want error")
	}
}
