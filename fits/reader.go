// Copyright 2014 Shahriar Iravanian (siravan@svtsim.com).  All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package fits

import (
	"errors"
	"io"
)

// BlockSize is the standard FITS logical record length
const BlockSize = 2880

// Reader is a buffered Reader implementation that works based on the FITS block structure (each 2880 bytes long)
// A failing read of the underlying reader is sticky: Read and NextPage return it again.
type Reader struct {
	buf    []byte
	left   int
	right  int
	reader io.Reader
	eof    bool
	err    error
}

// NewReader generates a new fits.Reader that wraps the given reader
func NewReader(reader io.Reader) *Reader {
	return &Reader{
		buf:    make([]byte, BlockSize),
		reader: reader,
	}
}

// IsEOF returns if b is finished
func (b *Reader) IsEOF() bool {
	return b.eof
}

// fill reads the next whole block into buf
func (b *Reader) fill() error {
	n, err := io.ReadFull(b.reader, b.buf)
	b.left = 0
	b.right = n
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		b.eof = true
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// a truncated last block is tolerated, the caller sees the short data
		b.eof = true
		return nil
	default:
		b.err = err
		return err
	}
}

// Read populates p while taking care of the FITS file block structure
func (b *Reader) Read(p []byte) (n int, err error) {
	if b.err != nil {
		return 0, b.err
	}
	for n < len(p) {
		if b.left == b.right {
			if b.eof {
				return n, io.ErrUnexpectedEOF
			}
			if err = b.fill(); err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return n, err
			}
			continue
		}
		k := copy(p[n:], b.buf[b.left:b.right])
		n += k
		b.left += k
	}
	return n, nil
}

// Skip discards the next n bytes
func (b *Reader) Skip(n int) error {
	for n > 0 {
		if b.left == b.right {
			if err := b.fill(); err != nil {
				if err == io.EOF {
					return io.ErrUnexpectedEOF
				}
				return err
			}
			continue
		}
		k := min(n, b.right-b.left)
		b.left += k
		n -= k
	}
	return nil
}

// NextPage skips the rest of the current 2880-byte block and reads the next block
func (b *Reader) NextPage() (buf []byte, err error) {
	if b.err != nil {
		return nil, b.err
	}
	if err = b.fill(); err != nil {
		return nil, err
	}
	if b.right < BlockSize {
		return nil, io.ErrUnexpectedEOF
	}
	b.left = b.right
	return b.buf, nil
}
