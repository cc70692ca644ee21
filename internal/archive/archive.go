// Package archive reads and writes pathway files with transparent
// compression, and bundles pathway collections into tar archives.
// Compression is chosen by filename suffix: .gz and .xz are handled,
// anything else is passed through untouched.
package archive

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// ReadFile reads a pathway file, decompressing by suffix.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pathway file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(path, ".xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case strings.HasSuffix(path, ".gz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pathway file: %w", err)
	}
	return data, nil
}

// WriteFile writes a pathway file, compressing by suffix.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
	}

	out, err := compress(path, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write pathway file: %w", err)
	}
	return nil
}

func compress(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".xz"):
		var buf bytes.Buffer
		xzw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		if _, err := xzw.Write(data); err != nil {
			return nil, fmt.Errorf("xz compress: %w", err)
		}
		if err := xzw.Close(); err != nil {
			return nil, fmt.Errorf("xz close: %w", err)
		}
		return buf.Bytes(), nil
	case strings.HasSuffix(path, ".gz"):
		var buf bytes.Buffer
		gzw := gzip.NewWriter(&buf)
		if _, err := gzw.Write(data); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := gzw.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

// BaseName strips the compression and pathway suffixes from a filename,
// leaving the bare pathway name: "WP254.gpml.xz" becomes "WP254".
func BaseName(path string) string {
	name := filepath.Base(path)
	for _, suffix := range []string{".xz", ".gz", ".gpml", ".xml"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}
