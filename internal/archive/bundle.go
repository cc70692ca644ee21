package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// BundleReader iterates a tar bundle of pathway files. Bundles come
// compressed as .tar.gz or .tar.xz.
type BundleReader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// OpenBundle opens a pathway bundle for reading, detecting the
// compression from the filename.
func OpenBundle(path string) (*BundleReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case strings.HasSuffix(path, ".tar.gz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported bundle format: %s", path)
	}

	return &BundleReader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the bundle and any underlying decompressor.
func (r *BundleReader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Visitor is called for each bundle entry. Return true to stop.
type Visitor func(name string, content io.Reader) (stop bool, err error)

// Iterate walks the bundle's pathway entries in order, skipping
// directories.
func (r *BundleReader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read bundle header: %w", err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}

		stop, err := visitor(header.Name, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateBundle opens a bundle and iterates its entries.
func IterateBundle(path string, visitor Visitor) error {
	r, err := OpenBundle(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// WriteBundle writes named pathway documents into a tar bundle at path,
// compressed by suffix. Entries are written in sorted name order with a
// uniform timestamp so identical inputs produce identical bundles.
func WriteBundle(path string, entries map[string][]byte) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer out.Close()

	var tw *tar.Writer
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		xzw, err := xz.NewWriter(out)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
		defer xzw.Close()
		tw = tar.NewWriter(xzw)
	case strings.HasSuffix(path, ".tar.gz"):
		gzw := gzip.NewWriter(out)
		defer gzw.Close()
		tw = tar.NewWriter(gzw)
	default:
		return fmt.Errorf("unsupported bundle format: %s", path)
	}
	defer tw.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	modTime := time.Unix(0, 0)
	for _, name := range names {
		data := entries[name]
		header := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write bundle header: %w", err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write bundle entry: %w", err)
		}
	}
	return nil
}
