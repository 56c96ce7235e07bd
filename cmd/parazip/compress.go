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
	"fmt"
	"io"
	"os"

	"github.com/gochunk/parazip"
)

type compressCmd struct {
	path    string
	format  parazip.Format
	level   int
	threads int
	force   bool
}

func (c *compressCmd) Run(out io.Writer) error {
	if c.path == "" {
		return fmt.Errorf("%w: missing PATH", ErrFlagParse)
	}
	newPath := c.path + extensionFor(c.format)

	from, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", ErrParazip, err)
	}
	defer from.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if !c.force {
		flags |= os.O_EXCL
	}
	dst, err := os.OpenFile(newPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening target file: %w", ErrParazip, err)
	}
	defer dst.Close()

	sizes, uncompressed, err := c.compress(dst, from)
	if err != nil {
		return err
	}

	var compressed int64
	for _, n := range sizes {
		compressed += int64(n)
	}
	ratio := 0.0
	if uncompressed > 0 {
		ratio = (1 - float64(compressed)/float64(uncompressed)) * 100
	}
	_ = must(fmt.Fprintf(out, "%s: %d block(s), %d -> %d bytes (%.1f%%)\n",
		newPath, len(sizes), uncompressed, compressed, ratio))
	return nil
}

func (c *compressCmd) compress(dst io.Writer, src io.Reader) (sizes []int, uncompressed uint64, err error) {
	w, err := parazip.NewWriter(dst, parazip.Options{
		Format:     c.format,
		Level:      c.level,
		NumThreads: c.threads,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: creating writer: %w", ErrParazip, err)
	}
	defer func() {
		clsErr := w.Close()
		if err == nil {
			err = clsErr
		}
		if err == nil {
			sizes = w.Sizes()
			uncompressed = w.UncompressedSize()
		}
	}()

	if _, err = io.Copy(w, src); err != nil {
		err = fmt.Errorf("%w: compressing: %w", ErrParazip, err)
		return
	}
	return
}

func extensionFor(f parazip.Format) string {
	switch f {
	case parazip.Gzip, parazip.Mgzip, parazip.BGZF:
		return ".gz"
	case parazip.Zlib:
		return ".zz"
	case parazip.RawDeflate:
		return ".deflate"
	case parazip.Snappy:
		return ".sz"
	default:
		return ".pz"
	}
}
