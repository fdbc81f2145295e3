package index

import (
	"testing"

	"github.com/gofrs/flock"
)

// filepathLock holds the index lock for path until the returned func runs.
func filepathLock(t *testing.T, path string) func() {
	t.Helper()
	lock := flock.New(LockPath(path))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire lock: ok=%v err=%v", ok, err)
	}
	return func() { _ = lock.Unlock() }
}
