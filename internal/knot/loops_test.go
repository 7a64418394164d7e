package knot_test

import (
	"errors"
	"testing"
	"time"

	"knot-go/internal/knot"
	"knot-go/internal/rules"
	"knot-go/internal/testutil"
)

func loopPolicy() rules.LoopPolicy {
	return rules.LoopPolicy{
		Strategy: rules.StrategyShortest,
		Rules: []rules.LoopRule{
			{Tag: "friends", CadenceDays: 14},
			{Tag: "family", CadenceDays: 7},
		},
	}
}

// withLoops returns a second service over env's storage with loops enabled.
func withLoops(env *testutil.Env, loops knot.LoopSettings) *knot.KnotService {
	settings := env.Service.Settings()
	settings.Loops = loops
	return knot.NewKnotService(env.Database, env.Vault, env.Encryptor, knot.NewNopLogger(), env.Clock, env.IDs, settings)
}

func TestKnotService_ApplyLoops(t *testing.T) {
	setup := func(t *testing.T) (*testutil.Env, *knot.KnotService) {
		t.Helper()
		env := testutil.NewTestService(t, testutil.DefaultSettings())
		mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Ann", Tags: []string{"friends"}})
		mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Ben", Tags: []string{"family"}, CadenceDays: intPtr(30), NextTouchpoint: "2024-02-01"})
		mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Cal", Tags: []string{"work"}})
		return env, withLoops(env, knot.LoopSettings{Policy: loopPolicy(), ScheduleMissing: true, Anchor: rules.AnchorNow})
	}

	cadenceOf := func(t *testing.T, svc *knot.KnotService, name string) *int {
		t.Helper()
		list, err := svc.ListContacts(name)
		if err != nil || len(list) != 1 {
			t.Fatalf("ListContacts(%q) = %v, %v", name, list, err)
		}
		return list[0].Contact.CadenceDays
	}

	t.Run("dry run reports without writing", func(t *testing.T) {
		_, svc := setup(t)
		report, err := svc.ApplyLoops(knot.LoopApplyOptions{DryRun: true})
		if err != nil {
			t.Fatalf("ApplyLoops() error = %v", err)
		}
		if !report.DryRun || report.Matched != 2 || report.Updated != 1 || report.Scheduled != 1 || report.Skipped != 2 {
			t.Errorf("report = %+v", report)
		}
		if c := cadenceOf(t, svc, "Ann"); c != nil {
			t.Errorf("dry run wrote cadence %d", *c)
		}
	})

	t.Run("fills missing cadence and schedules", func(t *testing.T) {
		_, svc := setup(t)
		report, err := svc.ApplyLoops(knot.LoopApplyOptions{})
		if err != nil {
			t.Fatalf("ApplyLoops() error = %v", err)
		}
		if len(report.Changes) != 1 || report.Changes[0].DisplayName != "Ann" {
			t.Fatalf("Changes = %+v, want Ann only", report.Changes)
		}

		list, err := svc.ListContacts("Ann")
		if err != nil {
			t.Fatalf("ListContacts() error = %v", err)
		}
		ann := list[0].Contact
		if ann.CadenceDays == nil || *ann.CadenceDays != 14 {
			t.Errorf("Ann cadence = %v, want 14", ann.CadenceDays)
		}
		want := time.Date(2024, 1, 29, 10, 30, 0, 0, time.UTC)
		if ann.NextTouchpointAt == nil || !ann.NextTouchpointAt.Equal(want) {
			t.Errorf("Ann next = %v, want %v", ann.NextTouchpointAt, want)
		}
		if c := cadenceOf(t, svc, "Ben"); c == nil || *c != 30 {
			t.Errorf("Ben cadence = %v, want 30 kept", c)
		}
	})

	t.Run("force overrides existing cadence", func(t *testing.T) {
		_, svc := setup(t)
		report, err := svc.ApplyLoops(knot.LoopApplyOptions{Force: true, Filter: "#family"})
		if err != nil {
			t.Fatalf("ApplyLoops() error = %v", err)
		}
		if report.Matched != 1 || report.Updated != 1 || report.Scheduled != 0 {
			t.Errorf("report = %+v", report)
		}
		if c := cadenceOf(t, svc, "Ben"); c == nil || *c != 7 {
			t.Errorf("Ben cadence = %v, want 7", c)
		}
	})

	t.Run("schedule missing can be turned off per run", func(t *testing.T) {
		_, svc := setup(t)
		off := false
		report, err := svc.ApplyLoops(knot.LoopApplyOptions{ScheduleMissing: &off})
		if err != nil {
			t.Fatalf("ApplyLoops() error = %v", err)
		}
		if report.Updated != 1 || report.Scheduled != 0 {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("last interaction anchor", func(t *testing.T) {
		env, svc := setup(t)
		list, _ := env.Service.ListContacts("Ann")
		if _, err := env.Service.AddInteraction(knot.NewInteractionInput{
			ContactID: list[0].Contact.ID, OccurredAt: "2024-01-10 09:00:00",
		}, false); err != nil {
			t.Fatalf("AddInteraction() error = %v", err)
		}

		anchor := rules.AnchorLastInteraction
		report, err := svc.ApplyLoops(knot.LoopApplyOptions{Anchor: &anchor})
		if err != nil {
			t.Fatalf("ApplyLoops() error = %v", err)
		}
		if len(report.Changes) != 1 {
			t.Fatalf("Changes = %+v", report.Changes)
		}
		want := time.Date(2024, 1, 24, 9, 0, 0, 0, time.UTC)
		if got := report.Changes[0].NextTouchpointAfter; got == nil || !got.Equal(want) {
			t.Errorf("NextTouchpointAfter = %v, want %v", got, want)
		}
	})

	t.Run("created-at anchor never schedules in the past", func(t *testing.T) {
		env := testutil.NewTestService(t, testutil.DefaultSettings())
		old := mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Old", Tags: []string{"family"}})
		env.Clock.AdvanceDays(60)
		fresh := mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Fresh", Tags: []string{"family"}})

		anchor := rules.AnchorCreatedAt
		svc := withLoops(env, knot.LoopSettings{Policy: loopPolicy(), ScheduleMissing: true, Anchor: anchor})
		if _, err := svc.ApplyLoops(knot.LoopApplyOptions{}); err != nil {
			t.Fatalf("ApplyLoops() error = %v", err)
		}

		now := env.Clock.Now()
		detail, err := svc.GetContact(old.ID)
		if err != nil {
			t.Fatalf("GetContact() error = %v", err)
		}
		if got := detail.Contact.NextTouchpointAt; got == nil || !got.Equal(now) {
			t.Errorf("Old next = %v, want clamped to %v", got, now)
		}
		if detail.DueState == rules.Overdue {
			t.Errorf("Old due state = %v right after scheduling", detail.DueState)
		}

		detail, err = svc.GetContact(fresh.ID)
		if err != nil {
			t.Fatalf("GetContact() error = %v", err)
		}
		if want := fresh.CreatedAt.AddDate(0, 0, 7); detail.Contact.NextTouchpointAt == nil || !detail.Contact.NextTouchpointAt.Equal(want) {
			t.Errorf("Fresh next = %v, want %v", detail.Contact.NextTouchpointAt, want)
		}
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, svc := setup(t)
		if _, err := svc.ApplyLoops(knot.LoopApplyOptions{Filter: "#"}); err == nil {
			t.Error("ApplyLoops() expected filter error")
		}
	})

	t.Run("no loops configured", func(t *testing.T) {
		env := testutil.NewTestService(t, testutil.DefaultSettings())
		if _, err := env.Service.ApplyLoops(knot.LoopApplyOptions{}); !errors.Is(err, knot.ErrNoLoops) {
			t.Errorf("ApplyLoops() error = %v, want ErrNoLoops", err)
		}
	})
}

func TestKnotService_LoopDefaults(t *testing.T) {
	t.Run("new contact takes loop cadence", func(t *testing.T) {
		settings := testutil.DefaultSettings()
		settings.DefaultCadenceDays = intPtr(90)
		settings.Loops = knot.LoopSettings{Policy: loopPolicy(), ScheduleMissing: true}
		env := testutil.NewTestService(t, settings)
		c := mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Ada", Tags: []string{"Friends", "family"}})
		if c.CadenceDays == nil || *c.CadenceDays != 7 {
			t.Errorf("CadenceDays = %v, want 7 (shortest)", c.CadenceDays)
		}
		want := time.Date(2024, 1, 22, 10, 30, 0, 0, time.UTC)
		if c.NextTouchpointAt == nil || !c.NextTouchpointAt.Equal(want) {
			t.Errorf("NextTouchpointAt = %v, want %v", c.NextTouchpointAt, want)
		}

		other := mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Bob", Tags: []string{"work"}})
		if other.CadenceDays == nil || *other.CadenceDays != 90 {
			t.Errorf("CadenceDays = %v, want configured default 90", other.CadenceDays)
		}
	})

	t.Run("tag change applies loop", func(t *testing.T) {
		env := testutil.NewTestService(t, testutil.DefaultSettings())
		eve := mustAdd(t, env.Service, knot.NewContactInput{DisplayName: "Eve"})
		svc := withLoops(env, knot.LoopSettings{Policy: loopPolicy(), ApplyOnTagChange: true})

		if _, err := svc.TagContact(eve.ID, "Friends"); err != nil {
			t.Fatalf("TagContact() error = %v", err)
		}
		detail, err := svc.GetContact(eve.ID)
		if err != nil {
			t.Fatalf("GetContact() error = %v", err)
		}
		if detail.Contact.CadenceDays == nil || *detail.Contact.CadenceDays != 14 {
			t.Errorf("CadenceDays = %v, want 14", detail.Contact.CadenceDays)
		}
		if detail.Contact.NextTouchpointAt != nil {
			t.Errorf("NextTouchpointAt = %v, want nil without schedule_missing", detail.Contact.NextTouchpointAt)
		}
	})
}
