// Package artifact persists search indexes as searchindex.js files that a
// static documentation site or the searcher can load directly.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
)

// Writer writes one artifact, plus an optional gzip sibling, into a
// directory.
type Writer struct {
	dir  string
	name string
	gzip bool
}

func NewWriter(dir, name string, withGzip bool) *Writer {
	if name == "" {
		name = "searchindex.js"
	}
	return &Writer{dir: dir, name: name, gzip: withGzip}
}

// Path is where Write puts the artifact.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, w.name)
}

// Write encodes idx and atomically replaces the artifact. Readers never
// observe a partially written file.
func (w *Writer) Write(idx *searchindex.Index) (Info, error) {
	data, err := idx.Encode()
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("creating artifact directory: %w", err)
	}

	path := w.Path()
	if err := writeAtomic(path, func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return Info{}, err
	}
	if w.gzip {
		if err := writeAtomic(path+".gz", func(f io.Writer) error {
			zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
			if err != nil {
				return err
			}
			if _, err := io.Copy(zw, bytes.NewReader(data)); err != nil {
				return err
			}
			return zw.Close()
		}); err != nil {
			return Info{}, err
		}
	}
	info := Info{Path: path, Checksum: Checksum(data), Size: int64(len(data))}
	if st, err := os.Stat(path); err == nil {
		info.ModTime = st.ModTime()
	}
	return info, nil
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := fill(tmp); err != nil {
		cleanup()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming artifact into place: %w", err)
	}
	return nil
}
