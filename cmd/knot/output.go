package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"knot-go/internal/knot"
	"knot-go/internal/model"
	"knot-go/internal/rules"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(s)) {
	case "", formatText:
		return formatText, nil
	case formatJSON:
		return formatJSON, nil
	case formatYAML:
		return formatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// addFormatFlag registers -o on cmd.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
}

func formatFlag(cmd *cobra.Command) (outputFormat, error) {
	s, _ := cmd.Flags().GetString("output")
	return parseFormat(s)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported structured format %q", format)
}

var (
	colorOverdue   = lipgloss.Color("#E74C3C")
	colorToday     = lipgloss.Color("#F39C12")
	colorSoon      = lipgloss.Color("#7AA2F7")
	colorScheduled = lipgloss.Color("#2ECC71")
	colorMuted     = lipgloss.Color("#666666")

	overdueStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorOverdue)
	todayStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorToday)
	soonStyle      = lipgloss.NewStyle().Foreground(colorSoon)
	scheduledStyle = lipgloss.NewStyle().Foreground(colorScheduled)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	headingStyle   = lipgloss.NewStyle().Bold(true)
)

// dueLabel renders a due state padded to a fixed width.
func dueLabel(s rules.DueState) string {
	text := fmt.Sprintf("%-11s", s.String())
	switch s {
	case rules.Overdue:
		return overdueStyle.Render(text)
	case rules.Today:
		return todayStyle.Render(text)
	case rules.Soon:
		return soonStyle.Render(text)
	case rules.Scheduled:
		return scheduledStyle.Render(text)
	}
	return mutedStyle.Render(text)
}

// formatInstant shows t in local time with a relative hint.
func formatInstant(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.RelTime(*t, now, "ago", "from now"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// contactView is the structured form of a contact.
type contactView struct {
	ID               string     `json:"id" yaml:"id"`
	DisplayName      string     `json:"display_name" yaml:"display_name"`
	Email            *string    `json:"email,omitempty" yaml:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	Handle           *string    `json:"handle,omitempty" yaml:"handle,omitempty"`
	Timezone         *string    `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	CadenceDays      *int       `json:"cadence_days,omitempty" yaml:"cadence_days,omitempty"`
	NextTouchpointAt *time.Time `json:"next_touchpoint_at,omitempty" yaml:"next_touchpoint_at,omitempty"`
	DueState         string     `json:"due_state" yaml:"due_state"`
	Tags             []string   `json:"tags" yaml:"tags"`
	CreatedAt        time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"updated_at"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

func newContactView(c *model.Contact, tags []string, due rules.DueState) contactView {
	if tags == nil {
		tags = []string{}
	}
	return contactView{
		ID:               c.ID,
		DisplayName:      c.DisplayName,
		Email:            c.Email,
		Phone:            c.Phone,
		Handle:           c.Handle,
		Timezone:         c.Timezone,
		CadenceDays:      c.CadenceDays,
		NextTouchpointAt: c.NextTouchpointAt,
		DueState:         due.String(),
		Tags:             tags,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		ArchivedAt:       c.ArchivedAt,
	}
}

type emailView struct {
	Email   string `json:"email" yaml:"email"`
	Primary bool   `json:"primary" yaml:"primary"`
}

type interactionView struct {
	ID         string     `json:"id" yaml:"id"`
	Kind       string     `json:"kind" yaml:"kind"`
	Note       string     `json:"note,omitempty" yaml:"note,omitempty"`
	OccurredAt time.Time  `json:"occurred_at" yaml:"occurred_at"`
	FollowUpAt *time.Time `json:"follow_up_at,omitempty" yaml:"follow_up_at,omitempty"`
}

type dateView struct {
	ID    string  `json:"id" yaml:"id"`
	Kind  string  `json:"kind" yaml:"kind"`
	Label *string `json:"label,omitempty" yaml:"label,omitempty"`
	Month int     `json:"month" yaml:"month"`
	Day   int     `json:"day" yaml:"day"`
	Year  *int    `json:"year,omitempty" yaml:"year,omitempty"`
}

func newDateView(d *model.ContactDate) dateView {
	return dateView{ID: d.ID, Kind: string(d.Kind), Label: d.Label, Month: d.Month, Day: d.Day, Year: d.Year}
}

// contactDetailView is the structured form of `knot show`.
type contactDetailView struct {
	contactView  `yaml:",inline"`
	Emails       []emailView       `json:"emails" yaml:"emails"`
	Interactions []interactionView `json:"interactions" yaml:"interactions"`
	Dates        []dateView        `json:"dates" yaml:"dates"`
}

func newContactDetailView(d *knot.ContactDetail) contactDetailView {
	v := contactDetailView{
		contactView:  newContactView(d.Contact, d.Tags, d.DueState),
		Emails:       []emailView{},
		Interactions: []interactionView{},
		Dates:        []dateView{},
	}
	for _, e := range d.Emails {
		v.Emails = append(v.Emails, emailView{Email: e.Email, Primary: e.IsPrimary})
	}
	for _, i := range d.Interactions {
		v.Interactions = append(v.Interactions, interactionView{
			ID: i.ID, Kind: i.Kind.String(), Note: i.Note, OccurredAt: i.OccurredAt, FollowUpAt: i.FollowUpAt,
		})
	}
	for _, dt := range d.Dates {
		v.Dates = append(v.Dates, newDateView(dt))
	}
	return v
}

func summaryViews(list []knot.ContactSummary) []contactView {
	out := make([]contactView, 0, len(list))
	for _, s := range list {
		out = append(out, newContactView(s.Contact, s.Tags, s.DueState))
	}
	return out
}

// writeContactTable prints one line per contact.
func writeContactTable(w io.Writer, list []knot.ContactSummary, now time.Time) {
	for _, s := range list {
		c := s.Contact
		line := fmt.Sprintf("%-8s  %s  %-24s  %s", shortID(c.ID), dueLabel(s.DueState), c.DisplayName, formatInstant(c.NextTouchpointAt, now))
		if len(s.Tags) > 0 {
			line += "  " + mutedStyle.Render("#"+strings.Join(s.Tags, " #"))
		}
		if c.Archived() {
			line += "  " + mutedStyle.Render("[archived]")
		}
		fmt.Fprintln(w, line)
	}
}

// writeContactDetail prints the full view of one contact.
func writeContactDetail(w io.Writer, d *knot.ContactDetail, now time.Time) {
	c := d.Contact
	fmt.Fprintln(w, headingStyle.Render(c.DisplayName))
	fmt.Fprintf(w, "ID:        %s\n", c.ID)
	fmt.Fprintf(w, "Due:       %s\n", strings.TrimSpace(dueLabel(d.DueState)))
	fmt.Fprintf(w, "Next:      %s\n", formatInstant(c.NextTouchpointAt, now))
	if c.CadenceDays != nil {
		fmt.Fprintf(w, "Cadence:   every %d days\n", *c.CadenceDays)
	}
	if c.Phone != nil {
		fmt.Fprintf(w, "Phone:     %s\n", *c.Phone)
	}
	if c.Handle != nil {
		fmt.Fprintf(w, "Handle:    %s\n", *c.Handle)
	}
	if c.Timezone != nil {
		fmt.Fprintf(w, "Timezone:  %s\n", *c.Timezone)
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(w, "Tags:      #%s\n", strings.Join(d.Tags, " #"))
	}
	if c.Archived() {
		fmt.Fprintf(w, "Archived:  %s\n", formatInstant(c.ArchivedAt, now))
	}

	if len(d.Emails) > 0 {
		fmt.Fprintln(w, "\n"+headingStyle.Render("Emails"))
		for _, e := range d.Emails {
			marker := ""
			if e.IsPrimary {
				marker = " (primary)"
			}
			fmt.Fprintf(w, "  %s%s\n", e.Email, marker)
		}
	}

	if len(d.Dates) > 0 {
		fmt.Fprintln(w, "\n"+headingStyle.Render("Dates"))
		for _, dt := range d.Dates {
			fmt.Fprintf(w, "  %-8s  %s\n", shortID(dt.ID), formatDate(dt))
		}
	}

	if len(d.Interactions) > 0 {
		fmt.Fprintln(w, "\n"+headingStyle.Render("Recent interactions"))
		for _, i := range d.Interactions {
			line := fmt.Sprintf("  %s  %-8s", i.OccurredAt.Local().Format("2006-01-02 15:04"), i.Kind.String())
			if i.Note != "" {
				line += "  " + i.Note
			}
			fmt.Fprintln(w, line)
		}
	}
}

// formatDate renders a contact date as "birthday 03-14 (1990)".
func formatDate(d *model.ContactDate) string {
	s := fmt.Sprintf("%s %02d-%02d", d.Kind, d.Month, d.Day)
	if d.Year != nil {
		s += fmt.Sprintf(" (%d)", *d.Year)
	}
	if d.Label != nil {
		s += " " + *d.Label
	}
	return s
}

// remindView is the structured form of `knot remind`.
type remindView struct {
	Overdue    []contactView `json:"overdue" yaml:"overdue"`
	Today      []contactView `json:"today" yaml:"today"`
	Soon       []contactView `json:"soon" yaml:"soon"`
	DatesToday []dateHitView `json:"dates_today" yaml:"dates_today"`
}

type dateHitView struct {
	ContactID   string   `json:"contact_id" yaml:"contact_id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Date        dateView `json:"date" yaml:"date"`
}

func newRemindView(r *knot.Reminders) remindView {
	v := remindView{
		Overdue:    summaryViews(r.Overdue),
		Today:      summaryViews(r.Today),
		Soon:       summaryViews(r.Soon),
		DatesToday: []dateHitView{},
	}
	for _, d := range r.DatesToday {
		v.DatesToday = append(v.DatesToday, dateHitView{ContactID: d.ContactID, DisplayName: d.DisplayName, Date: newDateView(d.Date)})
	}
	return v
}

func writeReminders(w io.Writer, r *knot.Reminders, now time.Time) {
	if r.Empty() {
		fmt.Fprintln(w, "Nothing due.")
		return
	}
	sections := []struct {
		title string
		list  []knot.ContactSummary
	}{
		{"Overdue", r.Overdue},
		{"Today", r.Today},
		{"Soon", r.Soon},
	}
	first := true
	for _, s := range sections {
		if len(s.list) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		fmt.Fprintln(w, headingStyle.Render(s.title))
		writeContactTable(w, s.list, now)
	}
	if len(r.DatesToday) > 0 {
		if !first {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingStyle.Render("Dates today"))
		for _, d := range r.DatesToday {
			fmt.Fprintf(w, "%-8s  %-24s  %s\n", shortID(d.ContactID), d.DisplayName, formatDate(d.Date))
		}
	}
}

func writeSnapshots(w io.Writer, snaps []knot.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots.")
		return
	}
	for _, s := range snaps {
		enc := ""
		if s.Encrypted() {
			enc = "  encrypted"
		}
		fmt.Fprintf(w, "%s  %8s  %s%s\n", s.Name, humanize.Bytes(uint64(s.Size)), s.CreatedAt.Local().Format("2006-01-02 15:04:05"), enc)
	}
}

func writeHistory(w io.Writer, ops []*model.Operation) {
	if len(ops) == 0 {
		fmt.Fprintln(w, "No operations recorded.")
		return
	}
	for _, op := range ops {
		duration := ""
		if op.FinishedAt != nil {
			duration = op.Duration().Truncate(time.Millisecond).String()
		}
		fmt.Fprintf(w, "#%d  %-15s  %s  %-8s  %-8s  %s\n",
			op.ID,
			op.Name,
			op.StartedAt.Local().Format("2006-01-02 15:04:05"),
			op.Status,
			duration,
			op.Parameters,
		)
	}
}

func writeLoopReport(w io.Writer, r *knot.LoopReport, now time.Time) {
	for _, c := range r.Changes {
		line := fmt.Sprintf("%-8s  %-24s  cadence %s -> %s", shortID(c.ContactID), c.DisplayName, formatCadence(c.CadenceBefore), formatCadence(c.CadenceAfter))
		if c.Scheduled {
			line += "  next " + formatInstant(c.NextTouchpointAfter, now)
		}
		fmt.Fprintln(w, line)
	}
	prefix := ""
	if r.DryRun {
		prefix = "Dry run: "
	}
	fmt.Fprintf(w, "%smatched %d, updated %d, scheduled %d, skipped %d\n", prefix, r.Matched, r.Updated, r.Scheduled, r.Skipped)
}

func formatCadence(days *int) string {
	if days == nil {
		return "-"
	}
	return fmt.Sprintf("%dd", *days)
}
