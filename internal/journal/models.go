package journal

import (
	"time"

	"archivist/internal/outcome"
)

// Item results besides the outcome.Reason values.
const (
	ResultArchived    = "archived"
	ResultFetchFailed = "fetch-failed"
)

// Run summarizes one archive invocation.
type Run struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	DestDir    string
	IndexPath  string
	Status     outcome.Status
	Requested  int
	Archived   int
	Failed     int
	Error      string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Item is the recorded result for one identifier of a run.
type Item struct {
	Identifier string
	Filename   string
	Result     string
	Detail     string
}

// ItemsFromReport flattens a report into journal items.
func ItemsFromReport(report outcome.Report) []Item {
	items := make([]Item, 0, len(report.Successes)+len(report.FetchFailures)+len(report.ResolutionFailures))
	for _, s := range report.Successes {
		items = append(items, Item{Identifier: s.Identifier, Filename: s.Filename, Result: ResultArchived})
		items = appendAliases(items, s.Aliases, s.Identifier, s.Filename, ResultArchived)
	}
	for _, f := range report.FetchFailures {
		items = append(items, Item{Identifier: f.Identifier, Filename: f.Filename, Result: ResultFetchFailed, Detail: errString(f.Err)})
		items = appendAliases(items, f.Aliases, f.Identifier, f.Filename, ResultFetchFailed)
	}
	for _, f := range report.ResolutionFailures {
		items = append(items, Item{Identifier: f.Identifier, Result: string(f.Reason), Detail: errString(f.Err)})
	}
	return items
}

func appendAliases(items []Item, aliases []string, primary, filename, result string) []Item {
	for _, alias := range aliases {
		items = append(items, Item{Identifier: alias, Filename: filename, Result: result, Detail: "same file as " + primary})
	}
	return items
}

// RunFromReport builds the run summary for a finished report.
func RunFromReport(id, source string, started, finished time.Time, destDir, indexPath string, report outcome.Report) Run {
	run := Run{
		ID:         id,
		Source:     source,
		StartedAt:  started,
		FinishedAt: finished,
		DestDir:    destDir,
		IndexPath:  indexPath,
		Status:     report.Status(),
		Requested:  report.Requested,
		Archived:   len(report.Successes),
		Failed:     len(report.FetchFailures) + len(report.ResolutionFailures),
	}
	if report.IndexErr != nil {
		run.Error = report.IndexErr.Error()
	}
	return run
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
