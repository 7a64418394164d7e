package database

import (
	"errors"
	"testing"
	"time"

	"knot-go/internal/knot"
	"knot-go/internal/model"
)

func mustCandidate(t *testing.T, db *SQLiteDatabase, id, a, b string) *model.MergeCandidate {
	t.Helper()

	m, err := model.NewMergeCandidate(id, a, b, model.ReasonNameDuplicate, testNow)
	if err != nil {
		t.Fatalf("NewMergeCandidate() error = %v", err)
	}
	n, err := db.CreateMergeCandidates([]*model.MergeCandidate{m})
	if err != nil {
		t.Fatalf("CreateMergeCandidates() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("CreateMergeCandidates() = %d, want 1", n)
	}
	return m
}

func TestSQLiteDatabase_MergeCandidates(t *testing.T) {
	t.Run("skips pairs with an open candidate", func(t *testing.T) {
		db := newTestDB(t)
		createContact(t, db, "c1", "Ada")
		createContact(t, db, "c2", "ada")
		createContact(t, db, "c3", "ADA")
		mustCandidate(t, db, "m1", "c1", "c2")

		again, _ := model.NewMergeCandidate("m2", "c2", "c1", model.ReasonNameDuplicate, testNow)
		other, _ := model.NewMergeCandidate("m3", "c1", "c3", model.ReasonNameDuplicate, testNow)
		n, err := db.CreateMergeCandidates([]*model.MergeCandidate{again, other})
		if err != nil {
			t.Fatalf("CreateMergeCandidates() error = %v", err)
		}
		if n != 1 {
			t.Errorf("CreateMergeCandidates() = %d, want 1", n)
		}
		if m, _ := db.FindMergeCandidate("m2"); m != nil {
			t.Errorf("FindMergeCandidate(m2) = %+v, want nil", m)
		}
	})

	t.Run("dismiss only closes open candidates", func(t *testing.T) {
		db := newTestDB(t)
		createContact(t, db, "c1", "Ada")
		createContact(t, db, "c2", "ada")
		mustCandidate(t, db, "m1", "c1", "c2")

		later := testNow.Add(time.Hour)
		if err := db.DismissMergeCandidate("m1", later); err != nil {
			t.Fatalf("DismissMergeCandidate() error = %v", err)
		}
		m, err := db.FindMergeCandidate("m1")
		if err != nil {
			t.Fatalf("FindMergeCandidate() error = %v", err)
		}
		if m.Status != model.MergeDismissed || m.ResolvedAt == nil || !m.ResolvedAt.Equal(later) {
			t.Errorf("candidate = %+v, want dismissed at %v", m, later)
		}
		if err := db.DismissMergeCandidate("m1", later); !errors.Is(err, knot.ErrNotFound) {
			t.Errorf("second DismissMergeCandidate() error = %v, want ErrNotFound", err)
		}

		// A dismissed pair may be proposed again.
		mustCandidate(t, db, "m2", "c1", "c2")
		open, _ := db.ListMergeCandidates(model.MergeOpen)
		all, _ := db.ListMergeCandidates("")
		if len(open) != 1 || len(all) != 2 {
			t.Errorf("open = %d, all = %d, want 1 and 2", len(open), len(all))
		}
	})
}

func TestSQLiteDatabase_MergeContacts(t *testing.T) {
	db := newTestDB(t)
	primary := createContact(t, db, "c1", "Ada", "friends")
	createContact(t, db, "c2", "ada", "friends", "work")
	createContact(t, db, "c3", "ADA")
	for _, e := range []model.ContactEmail{
		{ContactID: "c1", Email: "ada@example.com", CreatedAt: testNow},
		{ContactID: "c2", Email: "ada@work.test", CreatedAt: testNow},
	} {
		if err := db.AddEmail(e); err != nil {
			t.Fatalf("AddEmail() error = %v", err)
		}
	}
	if err := db.CreateInteraction(&model.Interaction{ID: "i1", ContactID: "c2", OccurredAt: testNow, CreatedAt: testNow, Kind: model.Call}, nil); err != nil {
		t.Fatalf("CreateInteraction() error = %v", err)
	}
	for _, d := range []*model.ContactDate{
		{ID: "d1", ContactID: "c1", Kind: model.DateBirthday, Month: 12, Day: 10, CreatedAt: testNow, UpdatedAt: testNow},
		{ID: "d2", ContactID: "c2", Kind: model.DateBirthday, Month: 12, Day: 10, Year: intPtr(1815), CreatedAt: testNow, UpdatedAt: testNow},
		{ID: "d3", ContactID: "c2", Kind: model.DateCustom, Label: strPtr("met"), Month: 3, Day: 1, CreatedAt: testNow, UpdatedAt: testNow},
	} {
		if err := db.CreateContactDate(d); err != nil {
			t.Fatalf("CreateContactDate(%s) error = %v", d.ID, err)
		}
	}
	mustCandidate(t, db, "m1", "c1", "c2")
	mustCandidate(t, db, "m2", "c2", "c3")
	mustCandidate(t, db, "m3", "c1", "c3")

	later := testNow.Add(time.Hour)
	merged := *primary
	merged.Email = strPtr("ada@work.test")
	merged.Handle = strPtr("@ada")
	merged.UpdatedAt = later
	if err := db.MergeContacts(&merged, "c2", later); err != nil {
		t.Fatalf("MergeContacts() error = %v", err)
	}

	if c, _ := db.FindContact("c2"); c != nil {
		t.Errorf("secondary still stored: %+v", c)
	}
	c, _ := db.FindContact("c1")
	if c.Handle == nil || *c.Handle != "@ada" || c.Email == nil || *c.Email != "ada@work.test" {
		t.Errorf("FindContact() = %+v, want merged columns", c)
	}

	emails, _ := db.ListEmails("c1")
	if len(emails) != 2 || emails[0].Email != "ada@work.test" || !emails[0].IsPrimary || emails[1].IsPrimary {
		t.Errorf("ListEmails() = %+v, want ada@work.test primary", emails)
	}
	tags, _ := db.ListContactTags("c1")
	if len(tags) != 2 || tags[0] != "friends" || tags[1] != "work" {
		t.Errorf("ListContactTags() = %v, want [friends work]", tags)
	}
	interactions, _ := db.ListInteractions("c1", 0)
	if len(interactions) != 1 || interactions[0].ID != "i1" {
		t.Errorf("ListInteractions() = %v, want i1 moved", interactionIDs(interactions))
	}

	dates, _ := db.ListContactDates("c1")
	if len(dates) != 2 || dates[0].ID != "d3" || dates[1].ID != "d1" {
		t.Fatalf("ListContactDates() = %+v, want d3 then d1", dates)
	}
	if dates[1].Year == nil || *dates[1].Year != 1815 {
		t.Errorf("kept birthday year = %v, want 1815", dates[1].Year)
	}

	wantStatus := map[string]string{"m1": model.MergeMerged, "m2": model.MergeDismissed, "m3": model.MergeOpen}
	for id, want := range wantStatus {
		m, err := db.FindMergeCandidate(id)
		if err != nil || m == nil {
			t.Fatalf("FindMergeCandidate(%s) = %v, %v", id, m, err)
		}
		if m.Status != want {
			t.Errorf("%s status = %s, want %s", id, m.Status, want)
		}
	}

	t.Run("missing primary rolls back", func(t *testing.T) {
		ghost := model.NewContact("ghost", "Ghost", testNow)
		if err := db.MergeContacts(ghost, "c3", later); !errors.Is(err, knot.ErrNotFound) {
			t.Errorf("MergeContacts() error = %v, want ErrNotFound", err)
		}
		if c, _ := db.FindContact("c3"); c == nil {
			t.Error("secondary deleted despite failed merge")
		}
	})
}
