package mrfstream

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, data []byte, gz bool) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if gz {
		w := gzip.NewWriter(f)
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	} else {
		if _, err := f.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReaderConcatenatesPartsByteExact(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "a.json", []byte(`{"in_network":[`), false)
	p2 := writeTemp(t, dir, "b.json", []byte(`{"billing_code_type":"CPT","billing_code":"1"}]}`), false)

	r := Open([]string{p1, p2})
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"in_network":[{"billing_code_type":"CPT","billing_code":"1"}]}`
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReaderTransparentlyDecompressesGzipParts(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "a.json.gz", []byte(`{"k":`), true)
	p2 := writeTemp(t, dir, "b.json", []byte(`1}`), false)

	r := Open([]string{p1, p2})
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"k":1}`)) {
		t.Fatalf("got %q", got)
	}
}

func TestReaderMissingFileSurfacesAsIoError(t *testing.T) {
	r := Open([]string{"/nonexistent/path/does-not-exist.json"})
	defer r.Close()
	_, err := io.ReadAll(r)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
