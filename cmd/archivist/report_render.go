package main

import (
	"fmt"

	"archivist/internal/journal"
	"archivist/internal/outcome"
)

var failureColumns = []tableColumn{
	{Header: "Identifier", MaxWidth: 40},
	{Header: "File", MaxWidth: 40},
	{Header: "Problem"},
	{Header: "Detail", MaxWidth: 60},
}

// renderReport formats a finished run for the terminal.
func renderReport(report outcome.Report, colorize bool) []string {
	status := report.Status()
	lines := renderSectionHeader("Wikimedia Commons", colorize)
	lines = append(lines, renderStatusLine("Result", outcomeKind(status), report.Summary(), colorize))
	if report.Cancelled {
		lines = append(lines, renderStatusLine("Run", statusWarn, "interrupted before completion", colorize))
	}
	if report.IndexErr != nil {
		lines = append(lines, renderStatusLine("Index", statusError, report.IndexErr.Error(), colorize))
	}
	if rows := failureRows(report); len(rows) > 0 {
		lines = append(lines, "", renderTable(failureColumns, rows))
	}
	lines = append(lines, renderStatusLine("Exit status", outcomeKind(status), fmt.Sprintf("%s (%d)", status, status.ExitCode()), colorize))
	return lines
}

func failureRows(report outcome.Report) [][]string {
	failures := collectFailures(report)
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		file := f.Filename
		if file == "" {
			file = "-"
		}
		rows = append(rows, []string{f.Identifier, file, f.Problem, f.Detail})
	}
	return rows
}

// collectFailures lists resolution failures before fetch failures, each in
// report order.
func collectFailures(report outcome.Report) []failureRow {
	failures := make([]failureRow, 0, len(report.ResolutionFailures)+len(report.FetchFailures))
	for _, f := range report.ResolutionFailures {
		failures = append(failures, failureRow{Identifier: f.Identifier, Problem: string(f.Reason), Detail: errText(f.Err)})
	}
	for _, f := range report.FetchFailures {
		failures = append(failures, failureRow{Identifier: f.Identifier, Filename: f.Filename, Problem: journal.ResultFetchFailed, Detail: errText(f.Err)})
		for _, alias := range f.Aliases {
			failures = append(failures, failureRow{Identifier: alias, Filename: f.Filename, Problem: journal.ResultFetchFailed, Detail: "same file as " + f.Identifier})
		}
	}
	return failures
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type reportView struct {
	Status     string        `json:"status"`
	ExitCode   int           `json:"exit_code"`
	Requested  int           `json:"requested"`
	Archived   []archivedRow `json:"archived"`
	Failures   []failureRow  `json:"failures"`
	IndexError string        `json:"index_error,omitempty"`
	Cancelled  bool          `json:"cancelled,omitempty"`
}

type archivedRow struct {
	Identifier string   `json:"identifier"`
	Filename   string   `json:"filename"`
	Credit     string   `json:"credit"`
	Aliases    []string `json:"aliases,omitempty"`
}

type failureRow struct {
	Identifier string `json:"identifier"`
	Filename   string `json:"filename,omitempty"`
	Problem    string `json:"problem"`
	Detail     string `json:"detail,omitempty"`
}

func newReportView(report outcome.Report) reportView {
	status := report.Status()
	view := reportView{
		Status:     status.String(),
		ExitCode:   status.ExitCode(),
		Requested:  report.Requested,
		Archived:   make([]archivedRow, 0, len(report.Successes)),
		Failures:   collectFailures(report),
		IndexError: errText(report.IndexErr),
		Cancelled:  report.Cancelled,
	}
	for _, s := range report.Successes {
		view.Archived = append(view.Archived, archivedRow{Identifier: s.Identifier, Filename: s.Filename, Credit: s.Credit, Aliases: s.Aliases})
	}
	return view
}
