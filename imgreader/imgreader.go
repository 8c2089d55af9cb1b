// Package imgreader implements the single bounded-read primitive every other
// component in this module is built on: a byte-exact read at an absolute
// offset, with no partial-data recovery on a short read.
package imgreader

import (
	"io"

	"github.com/forensicfs/tskfs/fserrors"
)

// ImageReader is the contract consumed by the cache, chain resolver, and
// both block walkers. It deliberately exposes nothing beyond a bounded read:
// no seeking, no block-size notion, no write path.
type ImageReader interface {
	// ReadAt reads exactly len(buf) bytes starting at byteOffset. A short
	// read is always an error; callers never receive a partial buffer.
	ReadAt(byteOffset int64, buf []byte) error

	// Size returns the total number of addressable bytes in the image.
	Size() int64
}

// streamReader adapts an io.ReaderAt (or an io.ReadSeeker promoted to one)
// into an ImageReader.
type streamReader struct {
	source io.ReaderAt
	size   int64
}

// New wraps source, an io.ReaderAt over the full backing image, as an
// ImageReader. size is the total number of bytes in the image.
func New(source io.ReaderAt, size int64) ImageReader {
	return &streamReader{source: source, size: size}
}

func (r *streamReader) Size() int64 {
	return r.size
}

func (r *streamReader) ReadAt(byteOffset int64, buf []byte) error {
	if byteOffset < 0 || byteOffset > r.size {
		return fserrors.ARG.WithMessage("read offset out of range")
	}
	if byteOffset+int64(len(buf)) > r.size {
		return fserrors.Read.WithMessage("read extends past end of image")
	}

	n, err := r.source.ReadAt(buf, byteOffset)
	if n < len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fserrors.Read.WrapError(err)
	}
	if err != nil && err != io.EOF {
		return fserrors.Read.WrapError(err)
	}
	return nil
}
