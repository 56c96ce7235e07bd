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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gochunk/parazip"
)

type decompressCmd struct {
	path    string
	format  parazip.Format
	threads int
	force   bool
}

var errTruncate = errors.New("cannot derive output filename")

func (d *decompressCmd) Run() error {
	if d.path == "" {
		return fmt.Errorf("%w: missing PATH", ErrFlagParse)
	}
	newPath := strings.TrimSuffix(d.path, extensionFor(d.format))
	if newPath == d.path {
		return fmt.Errorf("%w: %q", errTruncate, d.path)
	}

	from, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", ErrParazip, err)
	}
	defer from.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if !d.force {
		flags |= os.O_EXCL
	}
	dst, err := os.OpenFile(newPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening target file: %w", ErrParazip, err)
	}
	defer dst.Close()

	opts := parazip.Options{Format: d.format, NumThreads: d.threads}
	r, err := parazip.NewReader(from, opts)
	if err != nil {
		return fmt.Errorf("%w: creating reader: %w", ErrParazip, err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("%w: decompressing %q: %w", ErrParazip, from.Name(), err)
	}
	return nil
}
