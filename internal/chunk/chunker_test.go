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

package chunk

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChunkerSealsOnThreshold(t *testing.T) {
	t.Parallel()

	c := New(4, 0, 0)
	var got []Item
	dispatch := func(it Item) error {
		got = append(got, it)
		return nil
	}

	if _, err := c.Write([]byte("abcdefgh"), dispatch); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Flush(dispatch); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []Item{
		{Index: 0, Data: []byte("abcd")},
		{Index: 1, Data: []byte("efgh")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestChunkerFlushOnEmptyIsNoop(t *testing.T) {
	t.Parallel()

	c := New(4, 0, 0)
	called := false
	if err := c.Flush(func(Item) error { called = true; return nil }); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if called {
		t.Error("Flush dispatched on empty chunker, want no-op")
	}
}

func TestChunkerDictTailCarriesForward(t *testing.T) {
	t.Parallel()

	c := New(4, 2, 0)
	var got []Item
	dispatch := func(it Item) error {
		got = append(got, it)
		return nil
	}

	if _, err := c.Write([]byte("abcdefgh"), dispatch); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got[0].DictTail != nil {
		t.Errorf("first chunk DictTail = %q, want nil", got[0].DictTail)
	}
	if !bytes.Equal(got[1].DictTail, []byte("cd")) {
		t.Errorf("second chunk DictTail = %q, want %q", got[1].DictTail, "cd")
	}
}

func TestChunkerCapsSizeToMaxInput(t *testing.T) {
	t.Parallel()

	c := New(100, 0, 10)
	if c.Size != 10 {
		t.Errorf("Size = %d, want 10 (capped to maxInput)", c.Size)
	}
}

func TestChunkerNeverShortWrites(t *testing.T) {
	t.Parallel()

	c := New(3, 0, 0)
	input := []byte("abcdefghij")
	n, err := c.Write(input, func(Item) error { return nil })
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(input) {
		t.Errorf("Write returned %d, want %d", n, len(input))
	}
}
