package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"knot-go/internal/knot"

	"github.com/spf13/cobra"
)

// boolPair reads a --name/--no-name flag pair. nil means neither was given.
func boolPair(cmd *cobra.Command, name string) *bool {
	if cmd.Flags().Changed(name) {
		v := true
		return &v
	}
	if cmd.Flags().Changed("no-" + name) {
		v := false
		return &v
	}
	return nil
}

func addBoolPair(cmd *cobra.Command, name, usage string) {
	cmd.Flags().Bool(name, false, usage)
	cmd.Flags().Bool("no-"+name, false, "Do not "+strings.ToLower(usage[:1])+usage[1:])
	cmd.MarkFlagsMutuallyExclusive(name, "no-"+name)
}

// stringFlag returns a pointer to the flag value when it was given.
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

var addCmd = &cobra.Command{
	Use:   "add NAME...",
	Short: "Add a contact",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		in := knot.NewContactInput{DisplayName: strings.Join(args, " ")}
		in.Email, _ = cmd.Flags().GetString("email")
		in.Phone, _ = cmd.Flags().GetString("phone")
		in.Handle, _ = cmd.Flags().GetString("handle")
		in.Timezone, _ = cmd.Flags().GetString("timezone")
		in.NextTouchpoint, _ = cmd.Flags().GetString("next")
		in.Tags, _ = cmd.Flags().GetStringSlice("tag")
		if cmd.Flags().Changed("cadence") {
			days, _ := cmd.Flags().GetInt("cadence")
			in.CadenceDays = &days
		}

		a, err := newApp(cmd, "add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.AddContact(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", c.DisplayName, c.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a contact",
	Long:  "Edit a contact. Passing an empty value clears an optional field.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		patch := knot.ContactPatch{
			DisplayName:    stringFlag(cmd, "name"),
			Email:          stringFlag(cmd, "email"),
			Phone:          stringFlag(cmd, "phone"),
			Handle:         stringFlag(cmd, "handle"),
			Timezone:       stringFlag(cmd, "timezone"),
			NextTouchpoint: stringFlag(cmd, "next"),
		}
		if cmd.Flags().Changed("cadence") {
			days, _ := cmd.Flags().GetInt("cadence")
			patch.CadenceDays = &days
		}
		patch.ClearCadence, _ = cmd.Flags().GetBool("clear-cadence")
		patch.ClearNextTouchpoint, _ = cmd.Flags().GetBool("clear-next")

		a, err := newApp(cmd, "edit")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.UpdateContact(args[0], patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", c.DisplayName)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "show")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		d, err := a.Service().GetContact(args[0])
		if err != nil {
			return err
		}
		if format != formatText {
			return writeStructured(cmd.OutOrStdout(), format, newContactDetailView(d))
		}
		writeContactDetail(cmd.OutOrStdout(), d, time.Now())
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [FILTER...]",
	Short: "List contacts",
	Long: `List contacts matching a filter. Terms are ANDed:

  #tag              contacts carrying tag
  due:overdue|today|soon|any|none
  archived:true|false (default false)
  anything else     matches name, email, phone or handle`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "ls")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		list, err := a.Service().ListContacts(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if format != formatText {
			return writeStructured(cmd.OutOrStdout(), format, summaryViews(list))
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contacts.")
			return nil
		}
		writeContactTable(cmd.OutOrStdout(), list, time.Now())
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Archive a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "archive")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.ArchiveContact(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %s\n", c.DisplayName)
		return nil
	},
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive ID",
	Short: "Restore an archived contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "unarchive")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.UnarchiveContact(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unarchived %s\n", c.DisplayName)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a contact and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "rm")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.DeleteContact(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note ID [TEXT...]",
	Short: "Record an interaction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		in := knot.NewInteractionInput{ContactID: args[0], Note: strings.Join(args[1:], " ")}
		in.Kind, _ = cmd.Flags().GetString("kind")
		in.OccurredAt, _ = cmd.Flags().GetString("at")
		in.FollowUpAt, _ = cmd.Flags().GetString("follow-up")

		a, err := newApp(cmd, "note")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		i, err := a.AddInteraction(in, boolPair(cmd, "reschedule"))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s at %s\n", i.Kind, i.OccurredAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch ID",
	Short: "Record a touch now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "touch")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.Touch(args[0], boolPair(cmd, "reschedule"))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Touched %s, next %s\n", c.DisplayName, formatInstant(c.NextTouchpointAt, time.Now()))
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule ID WHEN",
	Short: "Set the next touchpoint",
	Long:  "Set the next touchpoint. WHEN is YYYY-MM-DD (end of that day), YYYY-MM-DD HH:MM or YYYY-MM-DD HH:MM:SS in local time.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "schedule")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.Schedule(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s for %s\n", c.DisplayName, formatInstant(c.NextTouchpointAt, time.Now()))
		return nil
	},
}

var unscheduleCmd = &cobra.Command{
	Use:   "unschedule ID",
	Short: "Clear the next touchpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "unschedule")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.Unschedule(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unscheduled %s\n", c.DisplayName)
		return nil
	},
}

var cadenceCmd = &cobra.Command{
	Use:   "cadence ID DAYS|none",
	Short: "Set or clear the cadence",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var days *int
		if !strings.EqualFold(args[1], "none") {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid cadence %q", args[1])
			}
			days = &n
		}

		a, err := newApp(cmd, "cadence")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.SetCadence(args[0], days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s cadence: %s\n", c.DisplayName, formatCadence(c.CadenceDays))
		return nil
	},
}

func init() {
	addCmd.Flags().String("email", "", "Primary email")
	addCmd.Flags().String("phone", "", "Phone number")
	addCmd.Flags().String("handle", "", "Handle")
	addCmd.Flags().String("timezone", "", "IANA timezone")
	addCmd.Flags().Int("cadence", 0, "Days between touchpoints")
	addCmd.Flags().String("next", "", "Next touchpoint")
	addCmd.Flags().StringSliceP("tag", "t", nil, "Tag (repeatable)")
	rootCmd.AddCommand(addCmd)

	editCmd.Flags().String("name", "", "Display name")
	editCmd.Flags().String("email", "", "Primary email")
	editCmd.Flags().String("phone", "", "Phone number")
	editCmd.Flags().String("handle", "", "Handle")
	editCmd.Flags().String("timezone", "", "IANA timezone")
	editCmd.Flags().Int("cadence", 0, "Days between touchpoints")
	editCmd.Flags().Bool("clear-cadence", false, "Clear the cadence")
	editCmd.Flags().String("next", "", "Next touchpoint")
	editCmd.Flags().Bool("clear-next", false, "Clear the next touchpoint")
	editCmd.MarkFlagsMutuallyExclusive("cadence", "clear-cadence")
	editCmd.MarkFlagsMutuallyExclusive("next", "clear-next")
	rootCmd.AddCommand(editCmd)

	addFormatFlag(showCmd)
	rootCmd.AddCommand(showCmd)
	addFormatFlag(lsCmd)
	rootCmd.AddCommand(lsCmd)

	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(unarchiveCmd)
	rootCmd.AddCommand(rmCmd)

	noteCmd.Flags().StringP("kind", "k", "", "Interaction kind: call, text, hangout, email, telegram or any label")
	noteCmd.Flags().String("at", "", "When it happened (default now)")
	noteCmd.Flags().String("follow-up", "", "Follow-up time")
	addBoolPair(noteCmd, "reschedule", "Reschedule from the cadence")
	rootCmd.AddCommand(noteCmd)

	addBoolPair(touchCmd, "reschedule", "Reschedule from the cadence")
	rootCmd.AddCommand(touchCmd)

	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(unscheduleCmd)
	rootCmd.AddCommand(cadenceCmd)
}
