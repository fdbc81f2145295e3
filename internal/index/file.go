package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"archivist/internal/fileutil"
)

const lockRetryDelay = 100 * time.Millisecond

// LockPath returns the advisory lock file guarding an index.
func LockPath(path string) string {
	return path + ".lock"
}

// MergeFile merges entries into the index at path. The file and its parent
// directories are created when missing. Concurrent callers are serialized by
// an advisory lock; the index is replaced atomically and left untouched when
// its entry block cannot be parsed or an entry is invalid.
func MergeFile(ctx context.Context, path string, entries []Entry) error {
	if path == "" {
		return fmt.Errorf("index: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("index: create directory: %w", err)
	}

	lock := flock.New(LockPath(path))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("index: acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("index: lock %s not acquired", LockPath(path))
	}
	defer func() {
		_ = lock.Unlock()
	}()

	data, err := fileutil.ReadFileOrEmpty(path)
	if err != nil {
		return fmt.Errorf("index: read %s: %w", path, err)
	}
	doc, err := Parse(string(data))
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	if err := doc.Merge(entries); err != nil {
		return fmt.Errorf("index: merge into %s: %w", path, err)
	}

	rendered := doc.Render()
	if rendered == string(data) {
		if data == nil {
			// Create the empty index so later runs find it.
			if err := fileutil.WriteFileAtomic(path, nil, 0o644); err != nil {
				return fmt.Errorf("index: create %s: %w", path, err)
			}
		}
		return nil
	}
	if err := fileutil.WriteFileAtomic(path, []byte(rendered), fileutil.FileMode(path, 0o644)); err != nil {
		return fmt.Errorf("index: write %s: %w", path, err)
	}
	return nil
}
