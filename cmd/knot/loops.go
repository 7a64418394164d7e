package main

import (
	"strings"
	"time"

	"knot-go/internal/knot"
	"knot-go/internal/rules"

	"github.com/spf13/cobra"
)

// loops command
var loopsCmd = &cobra.Command{
	Use:   "loops",
	Short: "Apply tag-based cadences",
}

var loopsApplyCmd = &cobra.Command{
	Use:   "apply [FILTER...]",
	Short: "Set cadences from the configured loop rules",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		opts := knot.LoopApplyOptions{Filter: strings.Join(args, " ")}
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Force, _ = cmd.Flags().GetBool("force")
		opts.ScheduleMissing = boolPair(cmd, "schedule-missing")
		if cmd.Flags().Changed("anchor") {
			raw, _ := cmd.Flags().GetString("anchor")
			anchor, err := rules.ParseLoopAnchor(raw)
			if err != nil {
				return err
			}
			opts.Anchor = &anchor
		}

		a, err := newApp(cmd, "loops apply")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		report, err := a.ApplyLoops(opts)
		if err != nil {
			return err
		}
		writeLoopReport(cmd.OutOrStdout(), report, time.Now())
		return nil
	},
}

func init() {
	loopsApplyCmd.Flags().Bool("dry-run", false, "Report changes without writing them")
	loopsApplyCmd.Flags().Bool("force", false, "Replace existing cadences")
	loopsApplyCmd.Flags().String("anchor", "", "Schedule from now, created-at or last-interaction")
	addBoolPair(loopsApplyCmd, "schedule-missing", "Schedule contacts without a touchpoint")
	loopsCmd.AddCommand(loopsApplyCmd)
	rootCmd.AddCommand(loopsCmd)
}
