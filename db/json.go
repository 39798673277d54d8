// ABOUTME: JSON file snapshot backend
// ABOUTME: Writes indented JSON to a temp file in the same directory, then renames it into place
package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/harperreed/funnel/models"
)

// JSONFileBackend stores the snapshot as a single JSON document.
type JSONFileBackend struct {
	mu   sync.Mutex
	path string
}

// NewJSONFileBackend returns a backend for the file at path. The file is
// created on the first Save.
func NewJSONFileBackend(path string) *JSONFileBackend {
	return &JSONFileBackend{path: path}
}

// Path returns the file location.
func (b *JSONFileBackend) Path() string { return b.path }

func (b *JSONFileBackend) Load(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.EmptySnapshot(), nil
	}
	if err != nil {
		return nil, persistence("read "+b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.EmptySnapshot(), nil
	}

	snap := models.EmptySnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, corrupt(b.path, err)
	}
	return snap, nil
}

func (b *JSONFileBackend) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return persistence("encode snapshot", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return persistence("create "+dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+"-*.tmp")
	if err != nil {
		return persistence("create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return persistence("write "+tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return persistence("sync "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return persistence("close "+tmpName, err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return persistence("rename "+tmpName, err)
	}
	return nil
}

func (b *JSONFileBackend) Close() error { return nil }
