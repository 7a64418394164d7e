package main

import (
	"fmt"
	"io"
	"strings"

	"knot-go/internal/model"

	"github.com/spf13/cobra"
)

func writeTagList(w io.Writer, name string, tags []string) {
	if len(tags) == 0 {
		fmt.Fprintf(w, "%s has no tags\n", name)
		return
	}
	fmt.Fprintf(w, "%s: #%s\n", name, strings.Join(tags, " #"))
}

func writeEmails(w io.Writer, emails []model.ContactEmail) {
	if len(emails) == 0 {
		fmt.Fprintln(w, "No emails.")
		return
	}
	for _, e := range emails {
		marker := ""
		if e.IsPrimary {
			marker = " (primary)"
		}
		fmt.Fprintf(w, "%s%s\n", e.Email, marker)
	}
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage contact tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add ID TAG...",
	Short: "Add tags to a contact",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "tag add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		tags, err := a.TagContact(args[0], args[1:])
		if err != nil {
			return err
		}
		writeTagList(cmd.OutOrStdout(), args[0], tags)
		return nil
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm ID TAG...",
	Short: "Remove tags from a contact",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "tag rm")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		tags, err := a.UntagContact(args[0], args[1:])
		if err != nil {
			return err
		}
		writeTagList(cmd.OutOrStdout(), args[0], tags)
		return nil
	},
}

var tagSetCmd = &cobra.Command{
	Use:   "set ID [TAG...]",
	Short: "Replace a contact's tags",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "tag set")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		tags, err := a.SetTags(args[0], args[1:])
		if err != nil {
			return err
		}
		writeTagList(cmd.OutOrStdout(), args[0], tags)
		return nil
	},
}

var tagLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tags with contact counts",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "tag ls")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		tags, err := a.Service().ListTags()
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Fprintf(cmd.OutOrStdout(), "#%-24s %d\n", t.Name, t.Count)
		}
		return nil
	},
}

// email command
var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Manage contact emails",
}

var emailAddCmd = &cobra.Command{
	Use:   "add ID EMAIL",
	Short: "Add an email address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		primary, _ := cmd.Flags().GetBool("primary")

		a, err := newApp(cmd, "email add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		emails, err := a.AddEmail(args[0], args[1], primary)
		if err != nil {
			return err
		}
		writeEmails(cmd.OutOrStdout(), emails)
		return nil
	},
}

var emailRmCmd = &cobra.Command{
	Use:   "rm ID EMAIL",
	Short: "Remove an email address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "email rm")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		emails, err := a.RemoveEmail(args[0], args[1])
		if err != nil {
			return err
		}
		writeEmails(cmd.OutOrStdout(), emails)
		return nil
	},
}

var emailPrimaryCmd = &cobra.Command{
	Use:   "primary ID EMAIL",
	Short: "Make an address the primary email",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "email primary")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		emails, err := a.SetPrimaryEmail(args[0], args[1])
		if err != nil {
			return err
		}
		writeEmails(cmd.OutOrStdout(), emails)
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRmCmd)
	tagCmd.AddCommand(tagSetCmd)
	tagCmd.AddCommand(tagLsCmd)
	rootCmd.AddCommand(tagCmd)

	emailAddCmd.Flags().Bool("primary", false, "Make this the primary address")
	emailCmd.AddCommand(emailAddCmd)
	emailCmd.AddCommand(emailRmCmd)
	emailCmd.AddCommand(emailPrimaryCmd)
	rootCmd.AddCommand(emailCmd)
}
