package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"archivist/internal/logging"
	"archivist/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		runID    string
		level    string
		lines    int
		follow   bool
		rawLines bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show records from the archivist log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			filter := logs.Filter{RunID: runID, MinLevel: level}

			out := cmd.OutOrStdout()
			emit := func(rec logs.Record) {
				if rawLines {
					fmt.Fprintln(out, rec.Raw)
					return
				}
				fmt.Fprintln(out, rec.Format())
			}

			records, offset, err := logs.Tail(path, filter, lines)
			if err != nil {
				return err
			}
			for _, rec := range records {
				emit(rec)
			}
			if !follow {
				if len(records) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No matching records in %s\n", path)
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, emit)
		},
	}

	cmd.Flags().StringVarP(&runID, "run", "r", "", "Only show records of runs whose ID starts with this prefix")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show; 0 shows all")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records until interrupted")
	cmd.Flags().BoolVar(&rawLines, "json", false, "Print the raw JSON records")
	return cmd
}
