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

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rodaine/table"

	"github.com/gochunk/parazip"
	"github.com/gochunk/parazip/internal/codec"
)

// listCmd talks to internal/codec directly, rather than
// parazip.NewBlockReader, because it needs each block's individual
// compressed/uncompressed size, which the public BlockReader's plain
// io.Reader contract doesn't expose.
type listCmd struct {
	path   string
	format parazip.Format
}

func (l *listCmd) Run(out io.Writer) error {
	if l.path == "" {
		return fmt.Errorf("%w: missing PATH", ErrFlagParse)
	}

	adapter, err := codec.NewBlockAdapter(l.format.String(), 0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParazip, err)
	}
	dec, err := adapter.NewDecoder()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParazip, err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", ErrParazip, err)
	}
	defer f.Close()

	tbl := table.New("block", "compressed", "uncompressed", "ratio")

	br := bufio.NewReader(f)
	var buf bytes.Buffer
	var totalCompressed, totalUncompressed int64
	for i := 0; ; i++ {
		block, isEOF, err := adapter.ReadBlock(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: reading block %d: %w", ErrParazip, i, err)
		}
		if isEOF {
			break
		}

		buf.Reset()
		if err := dec.Decode(&buf, block); err != nil {
			return fmt.Errorf("%w: decoding block %d: %w", ErrParazip, i, err)
		}

		compressed, uncompressed := len(block), buf.Len()
		totalCompressed += int64(compressed)
		totalUncompressed += int64(uncompressed)
		ratio := 0.0
		if uncompressed > 0 {
			ratio = (1 - float64(compressed)/float64(uncompressed)) * 100
		}
		tbl.AddRow(i, compressed, uncompressed, fmt.Sprintf("%.1f%%", ratio))
	}

	tbl.WithWriter(out).Print()

	totalRatio := 0.0
	if totalUncompressed > 0 {
		totalRatio = (1 - float64(totalCompressed)/float64(totalUncompressed)) * 100
	}
	_ = must(fmt.Fprintf(out, "total: %d -> %d bytes (%.1f%%)\n", totalUncompressed, totalCompressed, totalRatio))
	return nil
}
