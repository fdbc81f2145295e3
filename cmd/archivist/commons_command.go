package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"archivist/internal/archive"
	"archivist/internal/commons"
	"archivist/internal/config"
	"archivist/internal/notifications"
	"archivist/internal/outcome"
)

type commonsOptions struct {
	dest       string
	index      string
	noIndex    bool
	jsonOutput bool
}

func newCommonsCommand(ctx *commandContext) *cobra.Command {
	var opts commonsOptions

	cmd := &cobra.Command{
		Use:     "wikimedia-commons [flags] IDENTIFIER...",
		Aliases: []string{"commons"},
		Short:   "Archive files from Wikimedia Commons",
		Long: `Resolve Commons file titles (for example "File:Example.jpg"), download each
file into the destination directory and merge a credit line per archived file
into the Markdown index.

The exit status is 0 when everything succeeded, 2 when an identifier could not
be resolved, 4 when a download failed and 8 when the index could not be
updated. The highest applicable status wins.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := commonsRequest(cfg, args, opts)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			pipeline, err := archive.New(cfg, archive.Dependencies{
				Logger:   logger,
				Journal:  store,
				Notifier: notifications.NewService(cfg, commons.UserAgent(version, cfg.Commons.Contact)),
				Version:  version,
			})
			if err != nil {
				return err
			}
			report, err := pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				if err := writeJSON(cmd, newReportView(report)); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				writeLines(out, renderReport(report, shouldColorize(out)))
			}
			if status := report.Status(); status != outcome.StatusSuccess {
				return &exitError{status: status, err: report.Err()}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "Destination directory (defaults to paths.dest_dir)")
	cmd.Flags().StringVarP(&opts.index, "index", "i", "", "Markdown index to update (defaults to paths.index_path)")
	cmd.Flags().BoolVar(&opts.noIndex, "no-index", false, "Archive without updating any index")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run report as JSON")
	cmd.MarkFlagsMutuallyExclusive("index", "no-index")
	return cmd
}

func commonsRequest(cfg *config.Config, args []string, opts commonsOptions) (archive.Request, error) {
	dest := strings.TrimSpace(opts.dest)
	if dest == "" {
		dest = cfg.Paths.DestDir
	}
	if dest == "" {
		return archive.Request{}, errors.New("destination directory required: pass --dest or set paths.dest_dir")
	}
	dest, err := config.ExpandPath(dest)
	if err != nil {
		return archive.Request{}, fmt.Errorf("resolve destination: %w", err)
	}

	var indexPath string
	if !opts.noIndex {
		indexPath = strings.TrimSpace(opts.index)
		if indexPath == "" {
			indexPath = cfg.Paths.IndexPath
		}
		if indexPath != "" {
			if indexPath, err = config.ExpandPath(indexPath); err != nil {
				return archive.Request{}, fmt.Errorf("resolve index path: %w", err)
			}
		}
	}

	return archive.Request{
		Identifiers: args,
		DestDir:     dest,
		IndexPath:   indexPath,
	}, nil
}
