package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"knot-go/internal/config"
	"knot-go/internal/filter"
	"knot-go/internal/knot"
	"knot-go/internal/model"
	"knot-go/internal/rules"

	"github.com/spf13/cobra"
)

// run executes the root command with args and returns its combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "knot.toml")
	if err := config.Init(path, config.NewConfig(dir)); err != nil {
		t.Fatalf("config.Init() error = %v", err)
	}
	return path
}

func TestCLI_EndToEnd(t *testing.T) {
	path := writeTestConfig(t)

	out, err := run(t, "--config", path, "add", "Ada", "Lovelace", "-t", "friends", "--cadence", "14")
	if err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.HasPrefix(out, "Added Ada Lovelace (") {
		t.Errorf("add output = %q", out)
	}

	out, err = run(t, "--config", path, "ls", "-o", "json", "#friends")
	if err != nil {
		t.Fatalf("ls error = %v", err)
	}
	var views []contactView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decoding ls output %q: %v", out, err)
	}
	if len(views) != 1 || views[0].DisplayName != "Ada Lovelace" {
		t.Fatalf("ls = %+v", views)
	}
	if views[0].CadenceDays == nil || *views[0].CadenceDays != 14 || views[0].DueState != "unscheduled" {
		t.Errorf("ls view = %+v", views[0])
	}
	id := views[0].ID

	out, err = run(t, "--config", path, "touch", id)
	if err != nil {
		t.Fatalf("touch error = %v", err)
	}
	if !strings.HasPrefix(out, "Touched Ada Lovelace, next ") {
		t.Errorf("touch output = %q", out)
	}

	out, err = run(t, "--config", path, "ls", "-o", "text", "due:scheduled")
	if err == nil {
		t.Fatalf("ls with bad filter succeeded: %q", out)
	}
	var perr *filter.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("ls error = %T %v, want *filter.ParseError", err, err)
	}
	var msg bytes.Buffer
	printError(&msg, err)
	if !strings.HasPrefix(msg.String(), `filter error at token 0 ("due:scheduled")`) {
		t.Errorf("printError() = %q", msg.String())
	}

	out, err = run(t, "--config", path, "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "touch") || !strings.Contains(out, "add") {
		t.Errorf("history output = %q", out)
	}
}

func TestCLI_MissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	_, err := run(t, "--config", path, "remind")
	if err == nil || !strings.Contains(err.Error(), "knot config init") {
		t.Errorf("remind error = %v, want config init hint", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    outputFormat
		wantErr bool
	}{
		{"", formatText, false},
		{"text", formatText, false},
		{"JSON", formatJSON, false},
		{"yaml", formatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteStructured_YAML(t *testing.T) {
	days := 30
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	c := &model.Contact{ID: "c1", DisplayName: "Ada", CadenceDays: &days, CreatedAt: now, UpdatedAt: now}

	var buf bytes.Buffer
	if err := writeStructured(&buf, formatYAML, []contactView{newContactView(c, nil, rules.Unscheduled)}); err != nil {
		t.Fatalf("writeStructured() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"display_name: Ada", "cadence_days: 30", "due_state: unscheduled", "tags: []"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "email") {
		t.Errorf("yaml output includes unset email:\n%s", out)
	}
}

func TestContactDetailView_JSON(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	d := &knot.ContactDetail{
		Contact:  &model.Contact{ID: "c1", DisplayName: "Ada", CreatedAt: now, UpdatedAt: now},
		DueState: rules.Overdue,
		Tags:     []string{"friends"},
		Emails:   []model.ContactEmail{{ContactID: "c1", Email: "ada@example.com", IsPrimary: true}},
		Interactions: []*model.Interaction{
			{ID: "i1", ContactID: "c1", OccurredAt: now, Kind: model.Call, Note: "caught up"},
		},
	}

	var buf bytes.Buffer
	if err := writeStructured(&buf, formatJSON, newContactDetailView(d)); err != nil {
		t.Fatalf("writeStructured() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding %q: %v", buf.String(), err)
	}
	if got["display_name"] != "Ada" || got["due_state"] != "overdue" {
		t.Errorf("detail = %v", got)
	}
	interactions, _ := got["interactions"].([]any)
	if len(interactions) != 1 || interactions[0].(map[string]any)["kind"] != "call" {
		t.Errorf("interactions = %v", got["interactions"])
	}
	if dates, _ := got["dates"].([]any); dates == nil {
		t.Errorf("dates = %v, want empty list", got["dates"])
	}
}

func TestFormatHelpers(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	if got := formatInstant(nil, now); got != "-" {
		t.Errorf("formatInstant(nil) = %q", got)
	}
	later := now.Add(72 * time.Hour)
	if got := formatInstant(&later, now); !strings.Contains(got, "from now") {
		t.Errorf("formatInstant(future) = %q", got)
	}
	earlier := now.Add(-72 * time.Hour)
	if got := formatInstant(&earlier, now); !strings.Contains(got, "ago") {
		t.Errorf("formatInstant(past) = %q", got)
	}

	year := 1990
	label := "met in Paris"
	d := &model.ContactDate{Kind: model.DateCustom, Month: 3, Day: 4, Year: &year, Label: &label}
	if got := formatDate(d); got != "custom 03-04 (1990) met in Paris" {
		t.Errorf("formatDate() = %q", got)
	}

	if got := strings.TrimSpace(dueLabel(rules.Soon)); !strings.Contains(got, "soon") {
		t.Errorf("dueLabel(Soon) = %q", got)
	}
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := formatCadence(nil); got != "-" {
		t.Errorf("formatCadence(nil) = %q", got)
	}
}

func TestWriteLoopReport(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	after := 14
	next := now.AddDate(0, 0, 14)
	r := &knot.LoopReport{
		Matched: 2, Updated: 1, Scheduled: 1, Skipped: 1, DryRun: true,
		Changes: []knot.LoopChange{{ContactID: "c1", DisplayName: "Ann", CadenceAfter: &after, NextTouchpointAfter: &next, Scheduled: true}},
	}

	var buf bytes.Buffer
	writeLoopReport(&buf, r, now)
	out := buf.String()
	if !strings.Contains(out, "cadence - -> 14d") {
		t.Errorf("missing cadence change:\n%s", out)
	}
	if !strings.Contains(out, "Dry run: matched 2, updated 1, scheduled 1, skipped 1") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestCLI_Merge(t *testing.T) {
	path := writeTestConfig(t)
	for _, args := range [][]string{
		{"add", "Ada", "Lovelace", "-t", "friends"},
		{"add", "ada", "lovelace", "-t", "work"},
	} {
		if _, err := run(t, append([]string{"--config", path}, args...)...); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
	}

	out, err := run(t, "--config", path, "merge", "scan")
	if err != nil {
		t.Fatalf("merge scan error = %v", err)
	}
	if !strings.Contains(out, "created 1") {
		t.Errorf("merge scan output = %q", out)
	}

	out, err = run(t, "--config", path, "merge", "ls")
	if err != nil {
		t.Fatalf("merge ls error = %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[1] != model.MergeOpen {
		t.Fatalf("merge ls output = %q", out)
	}

	out, err = run(t, "--config", path, "merge", "apply", fields[0])
	if err != nil {
		t.Fatalf("merge apply error = %v", err)
	}
	if !strings.HasPrefix(out, "Merged candidate ") {
		t.Errorf("merge apply output = %q", out)
	}

	out, err = run(t, "--config", path, "ls", "-o", "json")
	if err != nil {
		t.Fatalf("ls error = %v", err)
	}
	var views []contactView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decoding ls output %q: %v", out, err)
	}
	if len(views) != 1 || len(views[0].Tags) != 2 {
		t.Errorf("ls after merge = %+v, want one contact with both tags", views)
	}

	if _, err := run(t, "--config", path, "merge", "dismiss", fields[0]); !errors.Is(err, knot.ErrCandidateClosed) {
		t.Errorf("dismiss merged candidate error = %v, want ErrCandidateClosed", err)
	}
}

func TestWriteScanReport(t *testing.T) {
	r := &knot.ScanReport{
		Considered: 3, Groups: 1, Scanned: 1, DryRun: true,
		Results: []knot.ScanGroup{{
			DisplayName: "Ann", NormalizedName: "ann", PreferredID: "c1",
			Pairs: []knot.ScanPair{{PrimaryID: "c1", SecondaryID: "c2", Status: knot.PairDryRun}},
		}},
	}

	var buf bytes.Buffer
	writeScanReport(&buf, r)
	out := buf.String()
	if !strings.Contains(out, "(2 contacts, keep c1)") || !strings.Contains(out, "dry-run") {
		t.Errorf("missing group:\n%s", out)
	}
	if !strings.Contains(out, "Dry run: considered 3, groups 1, scanned 1, created 0, already open 0") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestWriteHistory(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	var buf bytes.Buffer
	writeHistory(&buf, []*model.Operation{
		{ID: 2, Name: "touch", Parameters: "c1", Status: model.OperationFailed, StartedAt: start, FinishedAt: &end},
	})
	out := buf.String()
	for _, want := range []string{"#2", "touch", "failed", "1.5s", "c1"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q: %q", want, out)
		}
	}

	buf.Reset()
	writeHistory(&buf, nil)
	if buf.String() != "No operations recorded.\n" {
		t.Errorf("empty history = %q", buf.String())
	}
}

func TestReadPassphrase_Piped(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		confirm bool
		want    string
		wantErr bool
	}{
		{"single line", "secret\n", false, "secret", false},
		{"no trailing newline", "secret", false, "secret", false},
		{"confirmed", "secret\nsecret\n", true, "secret", false},
		{"mismatch", "secret\nother\n", true, "", true},
		{"empty input", "", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.input))
			got, err := readPassphrase(cmd, "Passphrase: ", tt.confirm)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readPassphrase() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readPassphrase() = %q, want %q", got, tt.want)
			}
		})
	}
}
