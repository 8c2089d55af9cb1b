// Package testutil synthesizes minimal in-memory FAT and Registry hive
// images for the test suites in fat/ and registry/. Image bytes are built
// with github.com/noxer/bytewriter for the sequential boot-sector/REGF
// header fields and served through
// github.com/xaionaro-go/bytesextra.NewReadWriteSeeker.
package testutil

import (
	"io"
	"sync"

	"github.com/xaionaro-go/bytesextra"

	"github.com/forensicfs/tskfs/imgreader"
)

// readerAtAdapter promotes an io.ReadSeeker to an io.ReaderAt by
// serializing Seek+Read pairs. bytesextra.NewReadWriteSeeker hands back an
// io.ReadWriteSeeker, not an io.ReaderAt; this adapter is the minimal glue
// needed to feed it to imgreader.New.
type readerAtAdapter struct {
	mu     sync.Mutex
	seeker io.ReadSeeker
}

func (r *readerAtAdapter) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.seeker.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r.seeker, p)
}

// NewImageReader wraps a fully-built image buffer as an ImageReader, the
// way every test in fat/ and registry/ obtains its reader.
func NewImageReader(data []byte) imgreader.ImageReader {
	seeker := bytesextra.NewReadWriteSeeker(data)
	return imgreader.New(&readerAtAdapter{seeker: seeker}, int64(len(data)))
}
