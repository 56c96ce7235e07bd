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
	"bytes"

	"github.com/golang/snappy"

	"github.com/gochunk/parazip/internal/errs"
)

// snappyAdapter frames each chunk as its own framed-snappy stream (the
// "actual snappy primitive" spec.md §1 names as an external collaborator,
// out of this module's scope to reimplement). Snappy has no compression
// level and no dictionary support, so Profile reports DictSize 0 and the
// adapter ignores the level entirely.
type snappyAdapter struct{}

func newSnappyAdapter() (Adapter, error) {
	return &snappyAdapter{}, nil
}

func (a *snappyAdapter) Profile() Profile {
	return Profile{
		Format:      Snappy,
		DictSize:    0,
		Independent: true,
	}
}

func (a *snappyAdapter) Header() []byte          { return nil }
func (a *snappyAdapter) Footer(Aggregate) []byte { return nil }

func (a *snappyAdapter) NewCodec() (Codec, error) {
	return &snappyCodec{}, nil
}

type snappyCodec struct {
	w *snappy.Writer
}

func (c *snappyCodec) Encode(dst *bytes.Buffer, input, _ []byte) error {
	if c.w == nil {
		c.w = snappy.NewBufferedWriter(dst)
	} else {
		c.w.Reset(dst)
	}
	if _, err := c.w.Write(input); err != nil {
		return &errs.CodecError{Format: Snappy, Cause: err}
	}
	if err := c.w.Close(); err != nil {
		return &errs.CodecError{Format: Snappy, Cause: err}
	}
	return nil
}
