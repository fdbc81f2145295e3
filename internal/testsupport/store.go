package testsupport

import (
	"testing"

	"archivist/internal/config"
	"archivist/internal/journal"
)

// MustOpenJournal opens the journal configured in cfg and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.Paths.JournalPath)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
