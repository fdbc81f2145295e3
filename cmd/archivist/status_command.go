package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"archivist/internal/commons"
	"archivist/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check configuration, directories and Commons API reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Configuration", colorize)
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (not found, using defaults)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configDetail, colorize))
			contactKind, contactDetail := statusOK, cfg.Commons.Contact
			if contactDetail == "" {
				contactKind, contactDetail = statusWarn, "not set; Wikimedia asks clients to identify themselves"
			}
			lines = append(lines, renderStatusLine("Contact", contactKind, contactDetail, colorize))

			results := preflight.RunAll(cfg)
			if !offline {
				userAgent := commons.UserAgent(version, cfg.Commons.Contact)
				results = append(results, preflight.CheckCommonsAPI(cmd.Context(), cfg.Commons.APIURL, userAgent))
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			for _, r := range results {
				lines = append(lines, renderStatusLine(r.Name, checkKind(r.Passed), r.Detail, colorize))
			}
			writeLines(out, lines)

			if err := preflight.Err(results); err != nil {
				return fmt.Errorf("status checks failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Commons API reachability check")
	return cmd
}
