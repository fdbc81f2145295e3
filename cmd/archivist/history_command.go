package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"archivist/internal/journal"
)

const shortRunIDLength = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent archive runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *journal.Store) error {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]runView, 0, len(runs))
					for _, run := range runs {
						views = append(views, newRunView(run, nil))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(runColumns, runRows(runs)))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the per-file results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *journal.Store) error {
				run, err := store.FindRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("no run matches %q", args[0])
				}
				items, err := store.RunItems(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, newRunView(*run, items))
				}
				out := cmd.OutOrStdout()
				writeLines(out, renderRunDetail(*run, items, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

var runColumns = []tableColumn{
	{Header: "Run"},
	{Header: "Started"},
	{Header: "Source"},
	{Header: "Status"},
	{Header: "Requested", Align: alignRight},
	{Header: "Archived", Align: alignRight},
	{Header: "Failed", Align: alignRight},
	{Header: "Duration", Align: alignRight},
}

var itemColumns = []tableColumn{
	{Header: "Identifier", MaxWidth: 40},
	{Header: "File", MaxWidth: 40},
	{Header: "Result"},
	{Header: "Detail", MaxWidth: 60},
}

func runRows(runs []journal.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortRunID(run.ID),
			formatTimestamp(run.StartedAt),
			run.Source,
			run.Status.String(),
			strconv.Itoa(run.Requested),
			strconv.Itoa(run.Archived),
			strconv.Itoa(run.Failed),
			formatDuration(run.Duration()),
		})
	}
	return rows
}

func renderRunDetail(run journal.Run, items []journal.Item, colorize bool) []string {
	lines := renderSectionHeader("Run "+run.ID, colorize)
	lines = append(lines,
		renderStatusLine("Source", statusInfo, run.Source, colorize),
		renderStatusLine("Started", statusInfo, formatTimestamp(run.StartedAt), colorize),
		renderStatusLine("Duration", statusInfo, formatDuration(run.Duration()), colorize),
		renderStatusLine("Destination", statusInfo, run.DestDir, colorize),
	)
	if run.IndexPath != "" {
		lines = append(lines, renderStatusLine("Index", statusInfo, run.IndexPath, colorize))
	}
	summary := fmt.Sprintf("%s: %d requested, %d archived, %d failed", run.Status, run.Requested, run.Archived, run.Failed)
	lines = append(lines, renderStatusLine("Status", outcomeKind(run.Status), summary, colorize))
	if run.Error != "" {
		lines = append(lines, renderStatusLine("Error", outcomeKind(run.Status), run.Error, colorize))
	}
	if len(items) == 0 {
		return lines
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		file := item.Filename
		if file == "" {
			file = "-"
		}
		rows = append(rows, []string{item.Identifier, file, item.Result, item.Detail})
	}
	return append(lines, "", renderTable(itemColumns, rows))
}

func shortRunID(id string) string {
	if len(id) <= shortRunIDLength {
		return id
	}
	return id[:shortRunIDLength]
}

type runView struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	StartedAt  string     `json:"started_at"`
	FinishedAt string     `json:"finished_at"`
	DestDir    string     `json:"dest_dir"`
	IndexPath  string     `json:"index_path,omitempty"`
	Status     string     `json:"status"`
	Requested  int        `json:"requested"`
	Archived   int        `json:"archived"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
	Items      []itemView `json:"items,omitempty"`
}

type itemView struct {
	Identifier string `json:"identifier"`
	Filename   string `json:"filename,omitempty"`
	Result     string `json:"result"`
	Detail     string `json:"detail,omitempty"`
}

func newRunView(run journal.Run, items []journal.Item) runView {
	view := runView{
		ID:         run.ID,
		Source:     run.Source,
		StartedAt:  run.StartedAt.Format(timeLayoutJSON),
		FinishedAt: run.FinishedAt.Format(timeLayoutJSON),
		DestDir:    run.DestDir,
		IndexPath:  run.IndexPath,
		Status:     run.Status.String(),
		Requested:  run.Requested,
		Archived:   run.Archived,
		Failed:     run.Failed,
		Error:      run.Error,
	}
	for _, item := range items {
		view.Items = append(view.Items, itemView(item))
	}
	return view
}
