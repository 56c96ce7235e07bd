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
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBlockFormatsRoundTrip(t *testing.T) {
	t.Parallel()

	chunks := [][]byte{
		bytes.Repeat([]byte("alpha beta gamma delta "), 200),
		bytes.Repeat([]byte("epsilon zeta eta theta "), 75),
		[]byte("final"),
	}

	for _, format := range []string{Mgzip, BGZF} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			adapter, err := NewBlockAdapter(format, 0)
			if err != nil {
				t.Fatalf("NewBlockAdapter(%q): %v", format, err)
			}

			var framed bytes.Buffer
			for _, chunk := range chunks {
				var buf bytes.Buffer
				codec, err := adapter.NewCodec()
				if err != nil {
					t.Fatalf("NewCodec: %v", err)
				}
				if err := codec.Encode(&buf, chunk, nil); err != nil {
					t.Fatalf("Encode: %v", err)
				}
				framed.Write(buf.Bytes())
			}
			if f := adapter.Footer(Aggregate{}); f != nil {
				framed.Write(f)
			}

			dec, err := adapter.NewDecoder()
			if err != nil {
				t.Fatalf("NewDecoder: %v", err)
			}
			r := bufio.NewReader(bytes.NewReader(framed.Bytes()))

			var got bytes.Buffer
			for {
				block, isEOF, err := adapter.ReadBlock(r)
				if err != nil {
					if err == io.EOF {
						break
					}
					t.Fatalf("ReadBlock: %v", err)
				}
				if isEOF {
					break
				}
				if err := dec.Decode(&got, block); err != nil {
					t.Fatalf("Decode: %v", err)
				}
			}

			var want []byte
			for _, c := range chunks {
				want = append(want, c...)
			}
			if diff := cmp.Diff(want, got.Bytes()); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBGZFBlockIsIndependentlyDecodable(t *testing.T) {
	t.Parallel()

	adapter, err := NewBlockAdapter(BGZF, 0)
	if err != nil {
		t.Fatalf("NewBlockAdapter: %v", err)
	}
	codec, err := adapter.NewCodec()
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	input := []byte("isolated block content, no dictionary needed")
	var buf bytes.Buffer
	if err := codec.Encode(&buf, input, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	r := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	block, isEOF, err := adapter.ReadBlock(r)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if isEOF {
		t.Fatal("ReadBlock reported EOF on a real block")
	}

	dec, err := adapter.NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var out bytes.Buffer
	if err := dec.Decode(&out, block); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(input, out.Bytes()); diff != "" {
		t.Errorf("isolated decode (-want +got):\n%s", diff)
	}
}
