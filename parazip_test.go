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
	"bytes"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testInput() []byte {
	var buf bytes.Buffer
	for i := 0; i < 500; i++ {
		buf.WriteString("the quick brown fox jumps over the lazy dog; ")
	}
	return buf.Bytes()
}

func TestWriterRoundTrip(t *testing.T) {
	t.Parallel()

	input := testInput()

	for _, format := range []Format{Gzip, Zlib, RawDeflate, Snappy, Mgzip, BGZF} {
		format := format
		for _, threads := range []int{0, 1, 4} {
			threads := threads
			t.Run(string(format)+"/threads="+strconv.Itoa(threads), func(t *testing.T) {
				t.Parallel()

				var compressed bytes.Buffer
				w, err := NewWriter(&compressed, Options{
					Format:     format,
					NumThreads: threads,
					BufferSize: 1024,
				})
				if err != nil {
					t.Fatalf("NewWriter: %v", err)
				}
				if _, err := io.Copy(w, bytes.NewReader(input)); err != nil {
					t.Fatalf("Copy: %v", err)
				}
				if err := w.Close(); err != nil {
					t.Fatalf("Close: %v", err)
				}
				if got := w.UncompressedSize(); got != uint64(len(input)) {
					t.Errorf("UncompressedSize = %d, want %d", got, len(input))
				}

				r, err := NewReader(bytes.NewReader(compressed.Bytes()), Options{Format: format})
				if err != nil {
					t.Fatalf("NewReader: %v", err)
				}
				got, err := io.ReadAll(r)
				if err != nil {
					t.Fatalf("ReadAll: %v", err)
				}
				if diff := cmp.Diff(input, got); diff != "" {
					t.Errorf("round trip (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestWriterFlushIsIdempotentOnEmptyChunk(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	w, err := NewWriter(&dst, Options{Format: Gzip})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("second Flush (nothing buffered): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBlockReaderParallelDecompressesBGZF(t *testing.T) {
	t.Parallel()

	input := testInput()
	var compressed bytes.Buffer
	w, err := NewWriter(&compressed, Options{Format: BGZF, BufferSize: 512})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(input)); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	br, err := NewBlockReader(bytes.NewReader(compressed.Bytes()), Options{Format: BGZF, NumThreads: 4})
	if err != nil {
		t.Fatalf("NewBlockReader: %v", err)
	}
	got, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if diff := cmp.Diff(input, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestBlockReaderMissingEOFIsSurfaced(t *testing.T) {
	t.Parallel()

	var compressed bytes.Buffer
	w, err := NewWriter(&compressed, Options{Format: BGZF})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("truncated stream")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// Drop the trailing 28-byte BGZF EOF marker to simulate a truncated
	// file missing its terminal empty member.
	truncated := compressed.Bytes()[:compressed.Len()-28]

	br, err := NewBlockReader(bytes.NewReader(truncated), Options{Format: BGZF})
	if err != nil {
		t.Fatalf("NewBlockReader: %v", err)
	}
	got, err := io.ReadAll(br)
	if err == nil {
		t.Fatal("ReadAll succeeded, want ErrMissingEOF")
	}
	if !errors.Is(err, ErrMissingEOF) {
		t.Errorf("err = %v, want ErrMissingEOF", err)
	}
	if string(got) != "truncated stream" {
		t.Errorf("got = %q, want the content preceding the missing EOF marker", got)
	}
}

func TestOptionsRejectsDictSizeOverrideOnIndependentFormat(t *testing.T) {
	t.Parallel()

	_, err := NewWriter(&bytes.Buffer{}, Options{Format: BGZF, DictSizeOverride: 1024})
	if err == nil {
		t.Fatal("NewWriter succeeded, want ErrConfiguration")
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestBlockReaderRejectsNonBlockFormat(t *testing.T) {
	t.Parallel()

	_, err := NewBlockReader(&bytes.Buffer{}, Options{Format: Gzip})
	if err == nil {
		t.Fatal("NewBlockReader succeeded, want ErrConfiguration")
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}
