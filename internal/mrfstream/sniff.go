package mrfstream

import (
	"bytes"
	"io"
)

// sniffWindow is how many leading bytes of a document load_source_from_path
// inspects to decide whether it is an index file (reporting_structure) or a
// direct in-network document, without paying for a full parse either way.
const sniffWindow = 64 * 1024

// Sniff reports whether paths, read from the start, look like an index file
// (spec §6 operation 1: "JSON may be either an index ... or a direct
// in-network document"). It reopens paths fresh, so it must be called
// before any other read of the same paths.
func Sniff(paths []string) (isIndex bool, err error) {
	r := Open(paths)
	defer r.Close()

	buf := make([]byte, sniffWindow)
	n, readErr := io.ReadFull(r, buf)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return false, readErr
	}
	return bytes.Contains(buf[:n], []byte(`"reporting_structure"`)), nil
}
