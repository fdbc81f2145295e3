package preflight

import (
	"errors"
	"fmt"
	"path/filepath"

	"archivist/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for the given config. The index and
// journal are only checked when configured.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckCreatableDirectory("Destination directory", cfg.Paths.DestDir))

	if cfg.Paths.IndexPath != "" {
		results = append(results, CheckIndexFile("Index file", cfg.Paths.IndexPath))
	}

	results = append(results, CheckCreatableDirectory("Log directory", cfg.Paths.LogDir))

	if cfg.Journal.Enabled {
		results = append(results, CheckCreatableDirectory("Journal directory", filepath.Dir(cfg.Paths.JournalPath)))
	}

	return results
}

// Err joins the failed results into one error, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	return errors.Join(errs...)
}
