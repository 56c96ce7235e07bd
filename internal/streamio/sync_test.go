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

package streamio

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gochunk/parazip/internal/codec"
)

// encodeChunked drives a fresh Codec across chunks exactly like
// pipeline.Sync does, carrying the previous chunk's dictionary tail
// forward, and concatenates the resulting framed members.
func encodeChunked(t *testing.T, adapter codec.Adapter, chunks [][]byte) []byte {
	t.Helper()
	c, err := adapter.NewCodec()
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	dictSize := adapter.Profile().DictSize

	var out bytes.Buffer
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

func TestSyncDecodesChainedMembers(t *testing.T) {
	t.Parallel()

	chunks := [][]byte{
		bytes.Repeat([]byte("stream fixture alpha. "), 100),
		bytes.Repeat([]byte("stream fixture beta. "), 60),
		[]byte("tail chunk"),
	}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	for _, format := range []string{codec.Gzip, codec.Zlib, codec.RawDeflate} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			adapter, err := codec.New(format, 0)
			if err != nil {
				t.Fatalf("New(%q): %v", format, err)
			}
			framed := encodeChunked(t, adapter, chunks)

			seq, err := codec.NewSequentialAdapter(format, 0)
			if err != nil {
				t.Fatalf("NewSequentialAdapter(%q): %v", format, err)
			}
			s := NewSync(bytes.NewReader(framed), seq)
			got, err := io.ReadAll(s)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSyncSmallReadsAcrossMemberBoundaries(t *testing.T) {
	t.Parallel()

	chunks := [][]byte{
		bytes.Repeat([]byte("a"), 50),
		bytes.Repeat([]byte("b"), 50),
	}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	adapter, err := codec.New(codec.Gzip, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	framed := encodeChunked(t, adapter, chunks)

	seq, err := codec.NewSequentialAdapter(codec.Gzip, 0)
	if err != nil {
		t.Fatalf("NewSequentialAdapter: %v", err)
	}
	s := NewSync(bytes.NewReader(framed), seq)

	var got bytes.Buffer
	buf := make([]byte, 7)
	for {
		n, err := s.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if diff := cmp.Diff(want, got.Bytes()); diff != "" {
		t.Errorf("round trip via small reads (-want +got):\n%s", diff)
	}
}
