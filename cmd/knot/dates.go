package main

import (
	"fmt"
	"time"

	"knot-go/internal/knot"

	"github.com/spf13/cobra"
)

// date command
var dateCmd = &cobra.Command{
	Use:   "date",
	Short: "Manage birthdays and other annual dates",
}

var dateAddCmd = &cobra.Command{
	Use:   "add ID DATE",
	Short: "Add an annual date",
	Long:  "Add an annual date. DATE is MM-DD or YYYY-MM-DD.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		in := knot.NewDateInput{ContactID: args[0], Date: args[1]}
		in.Kind, _ = cmd.Flags().GetString("kind")
		in.Label, _ = cmd.Flags().GetString("label")

		a, err := newApp(cmd, "date add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		d, err := a.AddDate(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", formatDate(d), d.ID)
		return nil
	},
}

var dateLsCmd = &cobra.Command{
	Use:   "ls ID",
	Short: "List a contact's dates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "date ls")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		dates, err := a.Service().ListDates(args[0])
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No dates.")
			return nil
		}
		for _, d := range dates {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s  %s\n", shortID(d.ID), formatDate(d))
		}
		return nil
	},
}

var dateRmCmd = &cobra.Command{
	Use:   "rm DATE_ID",
	Short: "Remove a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "date rm")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.RemoveDate(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed date %s\n", args[0])
		return nil
	},
}

var dateTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List dates falling today",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "date today")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		hits, err := a.Service().DatesToday()
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No dates today.")
			return nil
		}
		for _, h := range hits {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s  %-24s  %s\n", shortID(h.ContactID), h.DisplayName, formatDate(h.Date))
		}
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Show overdue, today and soon contacts plus today's dates",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "remind")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		r, err := a.Service().Remind()
		if err != nil {
			return err
		}
		if format != formatText {
			return writeStructured(cmd.OutOrStdout(), format, newRemindView(r))
		}
		writeReminders(cmd.OutOrStdout(), r, time.Now())
		return nil
	},
}

func init() {
	dateAddCmd.Flags().StringP("kind", "k", "birthday", "Kind: birthday, name_day or custom")
	dateAddCmd.Flags().String("label", "", "Label (required for custom)")
	dateCmd.AddCommand(dateAddCmd)
	dateCmd.AddCommand(dateLsCmd)
	dateCmd.AddCommand(dateRmCmd)
	dateCmd.AddCommand(dateTodayCmd)
	rootCmd.AddCommand(dateCmd)

	addFormatFlag(remindCmd)
	rootCmd.AddCommand(remindCmd)
}
