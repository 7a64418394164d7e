package main

import (
	"fmt"
	"io"

	"knot-go/internal/knot"
	"knot-go/internal/model"

	"github.com/spf13/cobra"
)

// merge command
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Find and merge duplicate contacts",
}

var mergeContactsCmd = &cobra.Command{
	Use:   "contacts PRIMARY SECONDARY",
	Short: "Merge SECONDARY into PRIMARY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "merge contacts")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.MergeContacts(args[0], args[1], mergeOptions(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s (%s)\n", args[1], c.DisplayName, shortID(c.ID))
		return nil
	},
}

var mergeScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Propose merges for contacts sharing a display name",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var opts knot.ScanOptions
		opts.IncludeArchived, _ = cmd.Flags().GetBool("include-archived")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "merge scan")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		report, err := a.ScanSameName(opts)
		if err != nil {
			return err
		}
		if format != formatText {
			return writeStructured(cmd.OutOrStdout(), format, report)
		}
		writeScanReport(cmd.OutOrStdout(), report)
		return nil
	},
}

var mergeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List merge candidates",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		status, _ := cmd.Flags().GetString("status")
		a, err := newApp(cmd, "merge ls")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		list, err := a.Service().ListMergeCandidates(status)
		if err != nil {
			return err
		}
		writeMergeCandidates(cmd.OutOrStdout(), list)
		return nil
	},
}

var mergeApplyCmd = &cobra.Command{
	Use:   "apply ID",
	Short: "Merge the pair named by an open candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "merge apply")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.ApplyMergeCandidate(args[0], mergeOptions(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged candidate %s into %s (%s)\n", args[0], c.DisplayName, shortID(c.ID))
		return nil
	},
}

var mergeDismissCmd = &cobra.Command{
	Use:   "dismiss ID",
	Short: "Close a candidate without merging",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "merge dismiss")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.DismissMergeCandidate(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", args[0])
		return nil
	},
}

func addMergeFlags(cmd *cobra.Command) {
	cmd.Flags().String("prefer", "", "Contact whose fields win: primary or secondary")
	cmd.Flags().String("touchpoint", "", "Next touchpoint: earliest, latest, primary or secondary")
	cmd.Flags().String("archived", "", "Archived state: active-if-any, primary or secondary")
}

// mergeOptions reads the flags added by addMergeFlags. Values are checked by
// the service.
func mergeOptions(cmd *cobra.Command) knot.MergeOptions {
	prefer, _ := cmd.Flags().GetString("prefer")
	touchpoint, _ := cmd.Flags().GetString("touchpoint")
	archived, _ := cmd.Flags().GetString("archived")
	return knot.MergeOptions{
		Prefer:     knot.MergePreference(prefer),
		Touchpoint: knot.TouchpointPreference(touchpoint),
		Archived:   knot.ArchivedPreference(archived),
	}
}

func writeScanReport(w io.Writer, r *knot.ScanReport) {
	for _, g := range r.Results {
		fmt.Fprintf(w, "%s  (%d contacts, keep %s)\n", headingStyle.Render(g.DisplayName), len(g.Pairs)+1, shortID(g.PreferredID))
		for _, p := range g.Pairs {
			fmt.Fprintf(w, "  %-8s -> %-8s  %s\n", shortID(p.SecondaryID), shortID(p.PrimaryID), p.Status)
		}
	}
	prefix := ""
	if r.DryRun {
		prefix = "Dry run: "
	}
	fmt.Fprintf(w, "%sconsidered %d, groups %d, scanned %d, created %d, already open %d\n",
		prefix, r.Considered, r.Groups, r.Scanned, r.Created, r.SkippedOpen)
}

func writeMergeCandidates(w io.Writer, list []*model.MergeCandidate) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No merge candidates.")
		return
	}
	for _, m := range list {
		preferred := "-"
		if m.PreferredContactID != nil {
			preferred = shortID(*m.PreferredContactID)
		}
		fmt.Fprintf(w, "%s  %-9s  %-8s  %-8s  keep %-8s  %s  %s\n",
			m.ID, m.Status, shortID(m.ContactAID), shortID(m.ContactBID), preferred,
			m.Reason, m.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func init() {
	addMergeFlags(mergeContactsCmd)
	addMergeFlags(mergeApplyCmd)
	mergeScanCmd.Flags().Bool("include-archived", false, "Include archived contacts")
	mergeScanCmd.Flags().Int("limit", 0, "Scan at most this many duplicate groups")
	mergeScanCmd.Flags().Bool("dry-run", false, "Report candidates without creating them")
	addFormatFlag(mergeScanCmd)
	mergeLsCmd.Flags().String("status", "open", "Candidate status: open, merged, dismissed, or empty for all")
	mergeCmd.AddCommand(mergeContactsCmd, mergeScanCmd, mergeLsCmd, mergeApplyCmd, mergeDismissCmd)
	rootCmd.AddCommand(mergeCmd)
}
