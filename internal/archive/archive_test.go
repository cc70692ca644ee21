package archive

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
)

func TestReadWriteFile(t *testing.T) {
	data := []byte(`<Pathway xmlns="http://pathvisio.org/GPML/2021" title="t"/>`)
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
	}{
		{"plain", "p.gpml"},
		{"gzip", "p.gpml.gz"},
		{"xz", "p.gpml.xz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := WriteFile(path, data); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("round trip changed data: %q", got)
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.gpml")); err == nil {
		t.Error("ReadFile succeeded on missing file")
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"WP254.gpml", "WP254"},
		{"dir/WP254.gpml.xz", "WP254"},
		{"WP254.gpml.gz", "WP254"},
		{"plain.xml", "plain"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.path); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBundleRoundTrip(t *testing.T) {
	entries := map[string][]byte{
		"WP1.gpml": []byte("<Pathway/>"),
		"WP2.gpml": []byte("<Pathway title='x'/>"),
	}

	for _, suffix := range []string{".tar.gz", ".tar.xz"} {
		t.Run(suffix, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bundle"+suffix)
			if err := WriteBundle(path, entries); err != nil {
				t.Fatalf("WriteBundle: %v", err)
			}

			got := make(map[string][]byte)
			err := IterateBundle(path, func(name string, content io.Reader) (bool, error) {
				data, err := io.ReadAll(content)
				if err != nil {
					return true, err
				}
				got[name] = data
				return false, nil
			})
			if err != nil {
				t.Fatalf("IterateBundle: %v", err)
			}
			if len(got) != len(entries) {
				t.Fatalf("got %d entries, want %d", len(got), len(entries))
			}
			for name, want := range entries {
				if !bytes.Equal(got[name], want) {
					t.Errorf("entry %s = %q, want %q", name, got[name], want)
				}
			}
		})
	}
}

func TestBundleUnsupportedFormat(t *testing.T) {
	if err := WriteBundle(filepath.Join(t.TempDir(), "b.zip"), nil); err == nil {
		t.Error("WriteBundle accepted unsupported format")
	}
	if _, err := OpenBundle(filepath.Join(t.TempDir(), "b.zip")); err == nil {
		t.Error("OpenBundle accepted unsupported format")
	}
}

func TestBundleIterateStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.tar.gz")
	if err := WriteBundle(path, map[string][]byte{
		"a.gpml": []byte("1"),
		"b.gpml": []byte("2"),
	}); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	var seen int
	err := IterateBundle(path, func(string, io.Reader) (bool, error) {
		seen++
		return true, nil
	})
	if err != nil {
		t.Fatalf("IterateBundle: %v", err)
	}
	if seen != 1 {
		t.Errorf("visitor ran %d times after stop, want 1", seen)
	}
}
