package outcome

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Reason names why an identifier could not be resolved.
type Reason string

const (
	ReasonNotFound  Reason = "not-found"
	ReasonMalformed Reason = "malformed"
	ReasonTransport Reason = "transport"
)

// ResolutionFailure records an identifier the query API could not resolve.
type ResolutionFailure struct {
	Identifier string
	Reason     Reason
	Err        error
}

// FetchFailure records a resolved item whose content could not be stored.
type FetchFailure struct {
	Identifier string
	Filename   string
	URL        string
	Err        error
	// Aliases are other identifiers that resolved to the same file.
	Aliases []string
}

// Success records an archived file and the credit for its index entry.
type Success struct {
	Identifier string
	Filename   string
	Credit     string
	// Aliases are other identifiers that resolved to the same file.
	Aliases []string
}

// Report is the frozen result of a run.
type Report struct {
	Requested          int
	ResolutionFailures []ResolutionFailure
	FetchFailures      []FetchFailure
	Successes          []Success
	// IndexErr is set when the index merge failed; the index is left untouched.
	IndexErr error
	// Cancelled is set when the run was interrupted before all work finished.
	Cancelled bool
}

// Status classifies the report. An index failure is fatal; otherwise fetch
// failures take precedence over resolution failures.
func (r Report) Status() Status {
	switch {
	case r.IndexErr != nil:
		return StatusIndexError
	case r.Cancelled:
		return StatusGenericError
	case len(r.FetchFailures) > 0:
		return StatusFetchError
	case len(r.ResolutionFailures) > 0:
		return StatusQueryError
	default:
		return StatusSuccess
	}
}

// Err summarizes every failure in the report, or returns nil on success.
func (r Report) Err() error {
	var errs []error
	for _, f := range r.ResolutionFailures {
		errs = append(errs, fmt.Errorf("query %s: %s: %w", f.Identifier, f.Reason, f.Err))
	}
	for _, f := range r.FetchFailures {
		errs = append(errs, fmt.Errorf("fetch %s: %w", f.Filename, f.Err))
	}
	if r.IndexErr != nil {
		errs = append(errs, fmt.Errorf("index: %w", r.IndexErr))
	}
	if r.Cancelled {
		errs = append(errs, errors.New("run cancelled"))
	}
	return errors.Join(errs...)
}

// Summary returns a one-line description of the report counts.
func (r Report) Summary() string {
	parts := []string{
		fmt.Sprintf("%d requested", r.Requested),
		fmt.Sprintf("%d archived", len(r.Successes)),
	}
	if n := len(r.ResolutionFailures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unresolved", n))
	}
	if n := len(r.FetchFailures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed downloads", n))
	}
	if r.IndexErr != nil {
		parts = append(parts, "index not updated")
	}
	return strings.Join(parts, ", ")
}

// Accounted returns how many requested identifiers the report covers,
// counting aliases alongside the identifier that was fetched.
func (r Report) Accounted() int {
	n := len(r.ResolutionFailures)
	for _, s := range r.Successes {
		n += 1 + len(s.Aliases)
	}
	for _, f := range r.FetchFailures {
		n += 1 + len(f.Aliases)
	}
	return n
}

// Collector accumulates results from concurrent resolver and fetcher tasks.
type Collector struct {
	mu        sync.Mutex
	requested int
	resolve   map[string]ResolutionFailure
	fetch     map[string]FetchFailure
	success   map[string]Success
	aliases   map[string][]string
	indexErr  error
	cancelled bool
	report    *Report
}

// NewCollector returns an empty collector for a run over requested identifiers.
func NewCollector(requested int) *Collector {
	return &Collector{
		requested: requested,
		resolve:   make(map[string]ResolutionFailure),
		fetch:     make(map[string]FetchFailure),
		success:   make(map[string]Success),
		aliases:   make(map[string][]string),
	}
}

// ResolutionFailed records an unresolved identifier.
func (c *Collector) ResolutionFailed(f ResolutionFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil {
		return
	}
	c.resolve[f.Identifier] = f
}

// FetchFailed records a failed download. A later success for the same
// filename supersedes it.
func (c *Collector) FetchFailed(f FetchFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil {
		return
	}
	c.fetch[f.Filename] = f
}

// Succeeded records an archived file.
func (c *Collector) Succeeded(s Success) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil {
		return
	}
	c.success[s.Filename] = s
	delete(c.fetch, s.Filename)
}

// Aliased records an identifier that resolved to a file already being
// fetched for another identifier. It shares that file's outcome.
func (c *Collector) Aliased(filename, identifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil {
		return
	}
	c.aliases[filename] = append(c.aliases[filename], identifier)
}

// IndexFailed records a fatal index merge failure.
func (c *Collector) IndexFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil || err == nil {
		return
	}
	c.indexErr = err
}

// Cancelled marks the run as interrupted.
func (c *Collector) Cancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil {
		return
	}
	c.cancelled = true
}

// Successes returns a sorted snapshot of the archived files recorded so far.
func (c *Collector) Successes() []Success {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedValues(c.success, func(s Success) string { return s.Filename })
}

// Finalize freezes the collector. Later calls return the same report and
// later records are ignored.
func (c *Collector) Finalize() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report != nil {
		return *c.report
	}
	report := &Report{
		Requested:          c.requested,
		ResolutionFailures: sortedValues(c.resolve, func(f ResolutionFailure) string { return f.Identifier }),
		FetchFailures:      sortedValues(c.fetch, func(f FetchFailure) string { return f.Filename }),
		Successes:          sortedValues(c.success, func(s Success) string { return s.Filename }),
		IndexErr:           c.indexErr,
		Cancelled:          c.cancelled,
	}
	for i := range report.Successes {
		report.Successes[i].Aliases = c.sortedAliases(report.Successes[i].Filename)
	}
	for i := range report.FetchFailures {
		report.FetchFailures[i].Aliases = c.sortedAliases(report.FetchFailures[i].Filename)
	}
	c.report = report
	return *c.report
}

func (c *Collector) sortedAliases(filename string) []string {
	ids := c.aliases[filename]
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

func sortedValues[T any](m map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return strings.Compare(key(a), key(b)) })
	return out
}
