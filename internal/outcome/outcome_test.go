package outcome_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"archivist/internal/outcome"
)

func TestStatusExitCodes(t *testing.T) {
	cases := map[outcome.Status]int{
		outcome.StatusSuccess:      0,
		outcome.StatusGenericError: 1,
		outcome.StatusQueryError:   2,
		outcome.StatusFetchError:   4,
		outcome.StatusIndexError:   8,
	}
	for status, want := range cases {
		if got := status.ExitCode(); got != want {
			t.Fatalf("%s exit code = %d, want %d", status, got, want)
		}
		if parsed := outcome.ParseStatus(status.String()); parsed != status {
			t.Fatalf("ParseStatus(%q) = %v", status.String(), parsed)
		}
	}
}

func TestReportStatusPrecedence(t *testing.T) {
	resolveErr := outcome.ResolutionFailure{Identifier: "File:X.jpg", Reason: outcome.ReasonNotFound, Err: errors.New("missing")}
	fetchErr := outcome.FetchFailure{Identifier: "File:Y.jpg", Filename: "Y.jpg", Err: errors.New("404")}

	tests := []struct {
		name  string
		setup func(c *outcome.Collector)
		want  outcome.Status
	}{
		{"empty", func(*outcome.Collector) {}, outcome.StatusSuccess},
		{"success only", func(c *outcome.Collector) {
			c.Succeeded(outcome.Success{Filename: "a.jpg"})
		}, outcome.StatusSuccess},
		{"resolution only", func(c *outcome.Collector) {
			c.ResolutionFailed(resolveErr)
		}, outcome.StatusQueryError},
		{"fetch beats resolution", func(c *outcome.Collector) {
			c.ResolutionFailed(resolveErr)
			c.FetchFailed(fetchErr)
		}, outcome.StatusFetchError},
		{"index beats everything", func(c *outcome.Collector) {
			c.ResolutionFailed(resolveErr)
			c.FetchFailed(fetchErr)
			c.IndexFailed(errors.New("parse"))
		}, outcome.StatusIndexError},
		{"cancelled", func(c *outcome.Collector) {
			c.Succeeded(outcome.Success{Filename: "a.jpg"})
			c.Cancelled()
		}, outcome.StatusGenericError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := outcome.NewCollector(2)
			tt.setup(c)
			report := c.Finalize()
			if got := report.Status(); got != tt.want {
				t.Fatalf("status = %s, want %s", got, tt.want)
			}
			if (report.Err() == nil) != (tt.want == outcome.StatusSuccess) {
				t.Fatalf("unexpected Err() = %v for status %s", report.Err(), tt.want)
			}
		})
	}
}

func TestCollectorKeepsBothFailureSets(t *testing.T) {
	c := outcome.NewCollector(3)
	c.ResolutionFailed(outcome.ResolutionFailure{Identifier: "File:A.jpg", Reason: outcome.ReasonMalformed, Err: errors.New("no url")})
	c.FetchFailed(outcome.FetchFailure{Identifier: "File:B.jpg", Filename: "B.jpg", Err: errors.New("500")})
	c.Succeeded(outcome.Success{Identifier: "File:C.jpg", Filename: "C.jpg", Credit: "C"})

	report := c.Finalize()
	if len(report.ResolutionFailures) != 1 || len(report.FetchFailures) != 1 || len(report.Successes) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	msg := report.Err().Error()
	for _, want := range []string{"File:A.jpg", "malformed", "B.jpg"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
	if summary := report.Summary(); !strings.Contains(summary, "1 archived") || !strings.Contains(summary, "1 unresolved") {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestSuccessSupersedesFetchFailure(t *testing.T) {
	c := outcome.NewCollector(1)
	c.FetchFailed(outcome.FetchFailure{Filename: "a.jpg", Err: errors.New("timeout")})
	c.Succeeded(outcome.Success{Filename: "a.jpg", Credit: "A"})
	if got := c.Finalize().Status(); got != outcome.StatusSuccess {
		t.Fatalf("status = %s, want success", got)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	c := outcome.NewCollector(1)
	c.Succeeded(outcome.Success{Filename: "a.jpg"})
	first := c.Finalize()
	c.FetchFailed(outcome.FetchFailure{Filename: "b.jpg", Err: errors.New("late")})
	second := c.Finalize()
	if len(second.FetchFailures) != 0 || len(second.Successes) != len(first.Successes) {
		t.Fatalf("report changed after finalize: %+v", second)
	}
}

func TestCollectorConcurrentRecords(t *testing.T) {
	c := outcome.NewCollector(100)
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := string(rune('a'+i%26)) + strings.Repeat("x", i/26) + ".jpg"
			c.Succeeded(outcome.Success{Filename: name})
		}()
	}
	wg.Wait()
	report := c.Finalize()
	if len(report.Successes) != 100 {
		t.Fatalf("expected 100 successes, got %d", len(report.Successes))
	}
	for i := 1; i < len(report.Successes); i++ {
		if report.Successes[i-1].Filename >= report.Successes[i].Filename {
			t.Fatalf("successes not sorted at %d", i)
		}
	}
}

func TestAliasesShareTheFileOutcome(t *testing.T) {
	c := outcome.NewCollector(5)
	c.Succeeded(outcome.Success{Identifier: "File:A.jpg", Filename: "A.jpg"})
	c.Aliased("A.jpg", "File:a.jpg")
	c.Aliased("B.jpg", "File:b.jpg")
	c.FetchFailed(outcome.FetchFailure{Identifier: "File:B.jpg", Filename: "B.jpg", Err: errors.New("500")})
	c.ResolutionFailed(outcome.ResolutionFailure{Identifier: "File:C.jpg", Reason: outcome.ReasonNotFound})

	report := c.Finalize()
	if got := report.Successes[0].Aliases; len(got) != 1 || got[0] != "File:a.jpg" {
		t.Fatalf("success aliases = %v", got)
	}
	if got := report.FetchFailures[0].Aliases; len(got) != 1 || got[0] != "File:b.jpg" {
		t.Fatalf("failure aliases = %v", got)
	}
	if report.Accounted() != report.Requested {
		t.Fatalf("accounted %d of %d identifiers", report.Accounted(), report.Requested)
	}
}
