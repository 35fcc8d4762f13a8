// Package mrfstream implements the Stream Reader and Incremental JSON
// Extractor (spec §4.1, §4.2): presenting one or more file parts as a
// single logical byte stream, and walking that stream's top level with a
// streaming json.Decoder so no full document is ever buffered.
package mrfstream

import (
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
)

// Reader presents an ordered sequence of file parts as one forward-only,
// non-seekable byte stream (spec §4.1). Parts are concatenated byte-exact
// with no injected separators; a part with a ".gz" suffix is transparently
// decompressed before concatenation, so a multi-part input may freely mix
// compressed and plain parts.
type Reader struct {
	paths   []string
	idx     int
	current io.ReadCloser // the currently open part (file, possibly wrapped in a gzip reader)
	file    *os.File      // the raw file handle backing current, for Close bookkeeping
}

// Open returns a Reader over paths, in order. A single plain or gzipped
// file is just paths[0:1].
func Open(paths []string) *Reader {
	cp := make([]string, len(paths))
	copy(cp, paths)
	return &Reader{paths: cp}
}

// Read implements io.Reader, advancing through parts transparently.
func (r *Reader) Read(p []byte) (int, error) {
	for {
		if r.current == nil {
			if r.idx >= len(r.paths) {
				return 0, io.EOF
			}
			if err := r.openNext(); err != nil {
				return 0, err
			}
		}
		n, err := r.current.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			r.closeCurrent()
			continue
		}
		if err != nil {
			return 0, mrferrors.IO(r.paths[r.idx-1], err)
		}
	}
}

// closeCurrent releases the current part's handles: the (possibly gzip)
// reader wrapping the file, and the file itself, since gzip.Reader.Close
// does not close its underlying io.Reader.
func (r *Reader) closeCurrent() {
	if r.current != nil {
		r.current.Close()
		r.current = nil
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}

func (r *Reader) openNext() error {
	path := r.paths[r.idx]
	r.idx++

	f, err := os.Open(path)
	if err != nil {
		return mrferrors.IO(path, err)
	}
	r.file = f

	if !strings.HasSuffix(path, ".gz") {
		r.current = f
		return nil
	}

	gz, err := newGzipReader(f)
	if err != nil {
		f.Close()
		r.file = nil
		return mrferrors.IO(path, err)
	}
	r.current = gz
	return nil
}

// newGzipReader prefers pgzip (parallel, faster) and falls back to the
// single-threaded standard library reader, which is more tolerant of
// suspect trailers, on pgzip open failure.
func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	gz, err := pgzip.NewReader(r)
	if err == nil {
		return gz, nil
	}
	return gzip.NewReader(r)
}

// Close releases the currently open handle, if any. Safe to call multiple
// times and after a normal EOF.
func (r *Reader) Close() error {
	r.closeCurrent()
	return nil
}
