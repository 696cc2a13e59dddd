package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/folio/internal/apperr"
)

const blobExt = ".bin"

// FS implements Provider backed by a local directory, one file per blob.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates an FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory path.
func (f *FS) Root() string { return f.root }

// blobPath maps an id onto its file path, rejecting ids that could escape
// the data directory.
func (f *FS) blobPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("storage: empty id")
	}
	cleaned := filepath.Clean(id)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("storage: invalid id: %s", id)
	}
	return filepath.Join(f.root, cleaned+blobExt), nil
}

// Put atomically publishes content: tmp file → fsync → rename.
func (f *FS) Put(id string, content []byte) error {
	abs, err := f.blobPath(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".folio-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", apperr.ErrStorageFault, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp: %v", apperr.ErrStorageFault, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", apperr.ErrStorageFault, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", apperr.ErrStorageFault, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("%w: publish: %v", apperr.ErrStorageFault, err)
	}
	success = true
	return nil
}

// Get returns the blob for id, or ErrNoBlob if it does not exist.
func (f *FS) Get(id string) ([]byte, error) {
	abs, err := f.blobPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoBlob, id)
		}
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStorageFault, id, err)
	}
	return data, nil
}

// Delete removes the blob for id. Missing blobs are not an error, so a
// sweeper retry or a racing delete is harmless.
func (f *FS) Delete(id string) error {
	abs, err := f.blobPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %v", apperr.ErrStorageFault, id, err)
	}
	return nil
}

// IDs lists the identifiers of all published blobs, skipping temp files.
func (f *FS) IDs() ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), blobExt) {
			return nil
		}
		out = append(out, strings.TrimSuffix(d.Name(), blobExt))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", apperr.ErrStorageFault, err)
	}
	return out, nil
}
