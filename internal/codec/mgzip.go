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
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/gochunk/parazip/internal/errs"
)

// mgzipSubfieldID is the FEXTRA subfield id "IG" that carries a block's
// uncompressed length, per spec.md §6.
var mgzipSubfieldID = [2]byte{'I', 'G'}

// mgzipAdapter frames each chunk as an independent gzip member annotated
// with its own uncompressed length in the FEXTRA field. Because the
// annotated value (the input chunk's length) is known before compression
// starts, the header can be written in one pass with klauspost/compress/gzip
// directly — unlike BGZF, there is no header/patch dance required.
type mgzipAdapter struct {
	level int
}

func newMgzipAdapter(level int) (Adapter, error) {
	level = clampLevel(level, gzip.DefaultCompression, gzip.HuffmanOnly, gzip.BestCompression)
	return &mgzipAdapter{level: level}, nil
}

func (a *mgzipAdapter) Profile() Profile {
	return Profile{
		Format:      Mgzip,
		DictSize:    0,
		Independent: true,
		MinLevel:    gzip.HuffmanOnly,
		MaxLevel:    gzip.BestCompression,
	}
}

func (a *mgzipAdapter) Header() []byte          { return nil }
func (a *mgzipAdapter) Footer(Aggregate) []byte { return nil }

func (a *mgzipAdapter) NewCodec() (Codec, error) {
	return &mgzipCodec{level: a.level}, nil
}

type mgzipCodec struct {
	level int
	w     *gzip.Writer
}

func (c *mgzipCodec) Encode(dst *bytes.Buffer, input, _ []byte) error {
	extra := make([]byte, 4+4)
	extra[0], extra[1] = mgzipSubfieldID[0], mgzipSubfieldID[1]
	binary.LittleEndian.PutUint16(extra[2:4], 4)
	//nolint:gosec // a single chunk never exceeds buffer_size, which fits uint32.
	binary.LittleEndian.PutUint32(extra[4:8], uint32(len(input)))

	var err error
	if c.w == nil {
		c.w, err = gzip.NewWriterLevel(dst, c.level)
		if err != nil {
			return &errs.CodecError{Format: Mgzip, Cause: err}
		}
	} else {
		c.w.Reset(dst)
	}
	c.w.Header = gzip.Header{OS: 0xff, Extra: extra}

	if _, err := c.w.Write(input); err != nil {
		return &errs.CodecError{Format: Mgzip, Cause: err}
	}
	if err := c.w.Close(); err != nil {
		return &errs.CodecError{Format: Mgzip, Cause: err}
	}
	return nil
}

// ReadBlock has no BSIZE-equivalent field to read: the IG subfield carries
// the block's uncompressed length, not its on-wire length, so there is no
// way to know where an mgzip member ends without decoding it. ReadBlock
// therefore drives a one-shot gzip.Reader (Multistream(false), so it stops
// at the first member boundary) over a teeByteReader, which records the exact
// bytes consumed; those bytes are returned as the block, to be decoded a
// second time by a worker. See the BlockAdapter doc comment for why this
// differs from BGZF's pure byte-level split.
func (a *mgzipAdapter) ReadBlock(r *bufio.Reader) ([]byte, bool, error) {
	if _, err := r.Peek(1); err != nil {
		if err == io.EOF {
			return nil, false, io.EOF
		}
		return nil, false, &errs.SourceError{Cause: err}
	}

	var raw bytes.Buffer
	gz, err := gzip.NewReader(&teeByteReader{r: r, buf: &raw})
	if err != nil {
		return nil, false, &errs.FramingError{Format: Mgzip, Reason: "bad gzip magic"}
	}
	gz.Multistream(false)
	if _, err := io.Copy(io.Discard, gz); err != nil {
		return nil, false, &errs.CodecError{Format: Mgzip, Cause: err}
	}
	if len(gz.Header.Extra) < 4 || gz.Header.Extra[0] != mgzipSubfieldID[0] || gz.Header.Extra[1] != mgzipSubfieldID[1] {
		return nil, false, &errs.FramingError{Format: Mgzip, Reason: "missing IG extra subfield"}
	}
	return raw.Bytes(), false, nil
}

// teeByteReader wraps the shared *bufio.Reader the block reader reads
// from, recording every byte consumed into buf. It implements ReadByte
// as well as Read so that compress/flate's internal makeReader (which
// checks for an io.Reader that is also an io.ByteReader) uses it
// directly instead of wrapping it in a second, independently-buffered
// bufio.Reader — that second buffer would over-read past the single
// gzip member ReadBlock means to isolate, silently consuming bytes that
// belong to the next block.
type teeByteReader struct {
	r   *bufio.Reader
	buf *bytes.Buffer
}

func (t *teeByteReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.buf.Write(p[:n])
	}
	return n, err
}

func (t *teeByteReader) ReadByte() (byte, error) {
	b, err := t.r.ReadByte()
	if err == nil {
		t.buf.WriteByte(b)
	}
	return b, err
}

func (a *mgzipAdapter) NewDecoder() (Decoder, error) {
	return &mgzipDecoder{}, nil
}

type mgzipDecoder struct {
	r *gzip.Reader
}

func (d *mgzipDecoder) Decode(dst *bytes.Buffer, block []byte) error {
	var err error
	if d.r == nil {
		d.r, err = gzip.NewReader(bytes.NewReader(block))
	} else {
		err = d.r.Reset(bytes.NewReader(block))
	}
	if err != nil {
		return &errs.CodecError{Format: Mgzip, Cause: err}
	}
	if _, err := io.Copy(dst, d.r); err != nil {
		return &errs.CodecError{Format: Mgzip, Cause: err}
	}
	return nil
}
