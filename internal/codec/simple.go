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
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/gochunk/parazip/internal/errs"
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8
)

func clampLevel(level, def, min, max int) int {
	if level == 0 {
		return def
	}
	if level < min || level > max {
		return def
	}
	return level
}

// --- Gzip -------------------------------------------------------------

// gzipAdapter frames each chunk as its own complete, independent gzip
// member: no cross-chunk dictionary by default, so concatenating every
// member reproduces exactly the multi-member gzip stream klauspost/pgzip
// itself would decode with a stock Multistream reader, and so
// compress/gzip's standard multistream Reader can decode this module's
// output directly, per spec.md §6. DictSize is zero here; a caller that
// wants the higher ratio a cross-chunk dictionary buys, at the cost of
// that stdlib compatibility, opts in explicitly via
// Options.DictSizeOverride, which this adapter honors as dictionary
// context the same way pgzip's gzip.go ResetDict(dest, prevTail) would
// (see other_examples' klauspost-pgzip gzip.go).
type gzipAdapter struct {
	level int
}

func newGzipAdapter(level int) (Adapter, error) {
	level = clampLevel(level, flate.DefaultCompression, flate.HuffmanOnly, flate.BestCompression)
	return &gzipAdapter{level: level}, nil
}

func (a *gzipAdapter) Profile() Profile {
	return Profile{
		Format:      Gzip,
		DictSize:    0,
		Independent: false,
		MinLevel:    flate.HuffmanOnly,
		MaxLevel:    flate.BestCompression,
	}
}

func (a *gzipAdapter) Header() []byte { return nil }
func (a *gzipAdapter) Footer(Aggregate) []byte { return nil }

func (a *gzipAdapter) NewCodec() (Codec, error) {
	return &gzipCodec{level: a.level}, nil
}

type gzipCodec struct {
	level      int
	compressor *flate.Writer
}

func (c *gzipCodec) Encode(dst *bytes.Buffer, input, dictTail []byte) error {
	var hdr [10]byte
	hdr[0] = gzipID1
	hdr[1] = gzipID2
	hdr[2] = gzipDeflate
	hdr[3] = 0 // no FLG bits: no name, no comment, no extra
	// MTIME left zero, per RFC 1952 2.3.1, meaning "not set".
	switch c.level {
	case flate.BestCompression:
		hdr[8] = 2
	case flate.BestSpeed:
		hdr[8] = 4
	}
	hdr[9] = 0xff // OS unknown
	dst.Write(hdr[:])

	var err error
	if c.compressor == nil {
		c.compressor, err = flate.NewWriterDict(dst, c.level, dictTail)
	} else {
		c.compressor.ResetDict(dst, dictTail)
	}
	if err != nil {
		return &errs.CodecError{Format: Gzip, Cause: err}
	}
	if _, err := c.compressor.Write(input); err != nil {
		return &errs.CodecError{Format: Gzip, Cause: err}
	}
	if err := c.compressor.Close(); err != nil {
		return &errs.CodecError{Format: Gzip, Cause: err}
	}

	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:4], crc32.ChecksumIEEE(input))
	//nolint:gosec // RFC 1952 2.3.1 mandates ISIZE modulo 2^32.
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(input)))
	dst.Write(trailer[:])
	return nil
}

func (a *gzipAdapter) NewSequentialDecoder() SequentialDecoder { return gzipSeqDecoder{} }

// gzipSeqDecoder decodes one gzip member written by gzipCodec.Encode: a
// fixed 10-byte header (no FNAME/FCOMMENT/FEXTRA, matching what Encode
// writes), a raw deflate body (dictionary-primed only when
// Options.DictSizeOverride asked for it), and an 8-byte CRC32+ISIZE
// trailer. flate.NewReaderDict is read directly off the shared
// *bufio.Reader (itself an io.ByteReader) so compress/flate's makeReader
// never wraps it in a second buffer that would over-read into the
// trailer. A nil dictTail behaves exactly like flate.NewReader, so this
// same decoder also reads any standard independent-member gzip stream.
type gzipSeqDecoder struct{}

func (gzipSeqDecoder) Next(r *bufio.Reader, dst *bytes.Buffer, dictTail []byte) error {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return &errs.FramingError{Format: Gzip, Reason: "truncated member header"}
	}
	if hdr[0] != gzipID1 || hdr[1] != gzipID2 || hdr[2] != gzipDeflate {
		return &errs.FramingError{Format: Gzip, Reason: "bad gzip magic"}
	}
	if hdr[3] != 0 {
		return &errs.FramingError{Format: Gzip, Reason: "unsupported gzip flag bits"}
	}

	fr := flate.NewReaderDict(r, dictTail)
	defer fr.Close()
	start := dst.Len()
	if _, err := io.Copy(dst, fr); err != nil {
		return &errs.CodecError{Format: Gzip, Cause: err}
	}
	plain := dst.Bytes()[start:]

	var trailer [8]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return &errs.FramingError{Format: Gzip, Reason: "truncated member trailer"}
	}
	wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
	//nolint:gosec // RFC 1952 2.3.1 mandates ISIZE modulo 2^32.
	wantISize := binary.LittleEndian.Uint32(trailer[4:8])
	if crc32.ChecksumIEEE(plain) != wantCRC {
		return &errs.FramingError{Format: Gzip, Reason: "crc32 mismatch"}
	}
	//nolint:gosec // symmetric modulo comparison with the trailer above.
	if uint32(len(plain)) != wantISize {
		return &errs.FramingError{Format: Gzip, Reason: "isize mismatch"}
	}
	return nil
}

// --- Zlib ---------------------------------------------------------------

// zlibAdapter frames each chunk as its own complete, independent RFC 1950
// zlib stream, with no cross-chunk dictionary by default (DictSize 0), for
// the same stdlib-compatibility reason gzipAdapter gives: a standard
// zlib.Reader across any one member needs no dictionary it wasn't told
// about. Unlike gzip, the zlib format's NewWriterLevelDict comes from the
// same klauspost/compress family already used for the flate-based
// formats, so no hand-rolled header is required when
// Options.DictSizeOverride does opt into one.
type zlibAdapter struct {
	level int
}

func newZlibAdapter(level int) (Adapter, error) {
	level = clampLevel(level, zlib.DefaultCompression, zlib.HuffmanOnly, zlib.BestCompression)
	return &zlibAdapter{level: level}, nil
}

func (a *zlibAdapter) Profile() Profile {
	return Profile{
		Format:      Zlib,
		DictSize:    0,
		Independent: false,
		MinLevel:    zlib.HuffmanOnly,
		MaxLevel:    zlib.BestCompression,
	}
}

func (a *zlibAdapter) Header() []byte          { return nil }
func (a *zlibAdapter) Footer(Aggregate) []byte { return nil }

func (a *zlibAdapter) NewCodec() (Codec, error) {
	return &zlibCodec{level: a.level}, nil
}

type zlibCodec struct {
	level      int
	compressor *zlib.Writer
}

func (c *zlibCodec) Encode(dst *bytes.Buffer, input, dictTail []byte) error {
	var err error
	if c.compressor == nil {
		c.compressor, err = zlib.NewWriterLevelDict(dst, c.level, dictTail)
		if err != nil {
			return &errs.CodecError{Format: Zlib, Cause: err}
		}
	} else {
		if err := c.compressor.ResetDict(dst, dictTail); err != nil {
			return &errs.CodecError{Format: Zlib, Cause: err}
		}
	}
	if _, err := c.compressor.Write(input); err != nil {
		return &errs.CodecError{Format: Zlib, Cause: err}
	}
	if err := c.compressor.Close(); err != nil {
		return &errs.CodecError{Format: Zlib, Cause: err}
	}
	return nil
}

func (a *zlibAdapter) NewSequentialDecoder() SequentialDecoder { return zlibSeqDecoder{} }

// zlibSeqDecoder decodes one complete zlib stream per call, exactly
// mirroring zlibCodec.Encode's one-stream-per-chunk framing.
// zlib.NewReaderDict both parses the 2-byte header (validating the
// dictionary's Adler-32 against the FDICT bits zlibCodec's
// ResetDict/NewWriterLevelDict set) and verifies the trailing Adler-32
// checksum itself, so there is no manual trailer handling here the way
// gzipSeqDecoder needs.
type zlibSeqDecoder struct{}

func (zlibSeqDecoder) Next(r *bufio.Reader, dst *bytes.Buffer, dictTail []byte) error {
	if _, err := r.Peek(1); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return &errs.SourceError{Cause: err}
	}
	zr, err := zlib.NewReaderDict(r, dictTail)
	if err != nil {
		return &errs.FramingError{Format: Zlib, Reason: "bad zlib header"}
	}
	defer zr.Close()
	if _, err := io.Copy(dst, zr); err != nil {
		return &errs.CodecError{Format: Zlib, Cause: err}
	}
	return nil
}

// --- Raw deflate ----------------------------------------------------------

// deflateAdapter frames each chunk as its own complete, independent raw
// deflate member, again with no cross-chunk dictionary by default for the
// same reason as gzipAdapter/zlibAdapter above.
type deflateAdapter struct {
	level int
}

func newDeflateAdapter(level int) (Adapter, error) {
	level = clampLevel(level, flate.DefaultCompression, flate.HuffmanOnly, flate.BestCompression)
	return &deflateAdapter{level: level}, nil
}

func (a *deflateAdapter) Profile() Profile {
	return Profile{
		Format:      RawDeflate,
		DictSize:    0,
		Independent: false,
		MinLevel:    flate.HuffmanOnly,
		MaxLevel:    flate.BestCompression,
	}
}

func (a *deflateAdapter) Header() []byte          { return nil }
func (a *deflateAdapter) Footer(Aggregate) []byte { return nil }

func (a *deflateAdapter) NewCodec() (Codec, error) {
	return &deflateCodec{level: a.level}, nil
}

type deflateCodec struct {
	level      int
	compressor *flate.Writer
}

func (c *deflateCodec) Encode(dst *bytes.Buffer, input, dictTail []byte) error {
	var err error
	if c.compressor == nil {
		c.compressor, err = flate.NewWriterDict(dst, c.level, dictTail)
	} else {
		c.compressor.ResetDict(dst, dictTail)
	}
	if err != nil {
		return &errs.CodecError{Format: RawDeflate, Cause: err}
	}
	if _, err := c.compressor.Write(input); err != nil {
		return &errs.CodecError{Format: RawDeflate, Cause: err}
	}
	if err := c.compressor.Close(); err != nil {
		return &errs.CodecError{Format: RawDeflate, Cause: err}
	}
	return nil
}

func (a *deflateAdapter) NewSequentialDecoder() SequentialDecoder { return deflateSeqDecoder{} }

// deflateSeqDecoder decodes one raw deflate member: there is no header or
// trailer at all to parse, just the dictionary-primed bitstream itself,
// so this is the simplest of the three sequential decoders.
type deflateSeqDecoder struct{}

func (deflateSeqDecoder) Next(r *bufio.Reader, dst *bytes.Buffer, dictTail []byte) error {
	if _, err := r.Peek(1); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return &errs.SourceError{Cause: err}
	}
	fr := flate.NewReaderDict(r, dictTail)
	defer fr.Close()
	if _, err := io.Copy(dst, fr); err != nil {
		return &errs.CodecError{Format: RawDeflate, Cause: err}
	}
	return nil
}
