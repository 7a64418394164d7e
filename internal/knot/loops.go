package knot

import (
	"errors"
	"fmt"
	"time"

	"knot-go/internal/model"
	"knot-go/internal/rules"
)

// ErrNoLoops is returned by ApplyLoops when no loop rule or default exists.
var ErrNoLoops = errors.New("no loops configured")

// LoopApplyOptions narrows and overrides a loop run. nil pointers fall back
// to the configured settings.
type LoopApplyOptions struct {
	Filter          string
	DryRun          bool
	Force           bool
	ScheduleMissing *bool
	Anchor          *rules.LoopAnchor
}

// LoopChange describes one contact touched by a loop run.
type LoopChange struct {
	ContactID            string
	DisplayName          string
	CadenceBefore        *int
	CadenceAfter         *int
	NextTouchpointBefore *time.Time
	NextTouchpointAfter  *time.Time
	Scheduled            bool
}

// LoopReport summarizes a loop run.
type LoopReport struct {
	Matched   int
	Updated   int
	Scheduled int
	Skipped   int
	DryRun    bool
	Changes   []LoopChange
}

// ApplyLoops sets cadences from tags for every contact matching opts.Filter.
// Existing cadences are kept unless Force or override_existing is set.
// Contacts without a touchpoint are scheduled from the anchor when
// schedule_missing is on.
func (s *KnotService) ApplyLoops(opts LoopApplyOptions) (*LoopReport, error) {
	cfg := s.settings.Loops
	if cfg.Policy.Empty() {
		return nil, ErrNoLoops
	}
	scheduleMissing := cfg.ScheduleMissing
	if opts.ScheduleMissing != nil {
		scheduleMissing = *opts.ScheduleMissing
	}
	anchor := cfg.Anchor
	if opts.Anchor != nil {
		anchor = *opts.Anchor
	}
	override := opts.Force || cfg.OverrideExisting

	list, err := s.ListContacts(opts.Filter)
	if err != nil {
		return nil, err
	}
	report := &LoopReport{DryRun: opts.DryRun}
	if len(list) == 0 {
		return report, nil
	}

	var latest map[string]time.Time
	if scheduleMissing && anchor == rules.AnchorLastInteraction {
		ids := make([]string, len(list))
		for i, c := range list {
			ids[i] = c.Contact.ID
		}
		if latest, err = s.database.LatestInteractions(ids); err != nil {
			return nil, fmt.Errorf("loading latest interactions: %w", err)
		}
	}

	now := s.now()
	var updates []*model.Contact
	for _, summary := range list {
		c := summary.Contact
		if c.Archived() {
			report.Skipped++
			continue
		}
		desired, _ := cfg.Policy.ResolveCadence(summary.Tags)
		if desired == nil {
			report.Skipped++
			continue
		}
		report.Matched++

		change, updated, err := s.planLoop(c, *desired, override, scheduleMissing, anchor, latest, now)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			report.Skipped++
			continue
		}
		report.Updated++
		if change.Scheduled {
			report.Scheduled++
		}
		report.Changes = append(report.Changes, change)
		updates = append(updates, updated)
	}

	if !opts.DryRun && len(updates) > 0 {
		if err := s.database.UpdateContacts(updates); err != nil {
			return nil, fmt.Errorf("applying loops: %w", err)
		}
	}
	s.logger.Info("loops applied", "matched", report.Matched, "updated", report.Updated,
		"scheduled", report.Scheduled, "skipped", report.Skipped, "dry_run", opts.DryRun)
	return report, nil
}

// planLoop computes the loop result for one contact. updated is nil when
// nothing would change.
func (s *KnotService) planLoop(c *model.Contact, desired int, override, scheduleMissing bool, anchor rules.LoopAnchor, latest map[string]time.Time, now time.Time) (LoopChange, *model.Contact, error) {
	change := LoopChange{
		ContactID:            c.ID,
		DisplayName:          c.DisplayName,
		CadenceBefore:        c.CadenceDays,
		CadenceAfter:         c.CadenceDays,
		NextTouchpointBefore: c.NextTouchpointAt,
		NextTouchpointAfter:  c.NextTouchpointAt,
	}
	if c.CadenceDays == nil || override {
		change.CadenceAfter = &desired
	}
	cadenceChanged := change.CadenceAfter != nil &&
		(c.CadenceDays == nil || *c.CadenceDays != *change.CadenceAfter)

	if scheduleMissing && c.NextTouchpointAt == nil && change.CadenceAfter != nil {
		if from, ok := loopAnchor(c, anchor, latest, now); ok {
			next, err := rules.ScheduleNext(now, from, *change.CadenceAfter)
			if err != nil {
				return change, nil, err
			}
			change.NextTouchpointAfter = &next
			change.Scheduled = true
		}
	}

	if !cadenceChanged && !change.Scheduled {
		return change, nil, nil
	}
	updated := *c
	updated.CadenceDays = change.CadenceAfter
	updated.NextTouchpointAt = change.NextTouchpointAfter
	updated.UpdatedAt = now
	return change, &updated, nil
}

func loopAnchor(c *model.Contact, anchor rules.LoopAnchor, latest map[string]time.Time, now time.Time) (time.Time, bool) {
	switch anchor {
	case rules.AnchorCreatedAt:
		return c.CreatedAt, true
	case rules.AnchorLastInteraction:
		t, ok := latest[c.ID]
		return t, ok
	default:
		return now, true
	}
}

// planTagLoop re-resolves a single contact's cadence for its new tag set.
// It returns nil when the loop leaves the contact unchanged.
func (s *KnotService) planTagLoop(c *model.Contact, tags []string) (*model.Contact, error) {
	cfg := s.settings.Loops
	desired, _ := cfg.Policy.ResolveCadence(tags)
	if desired == nil {
		return nil, nil
	}

	var latest map[string]time.Time
	if cfg.ScheduleMissing && cfg.Anchor == rules.AnchorLastInteraction {
		var err error
		if latest, err = s.database.LatestInteractions([]string{c.ID}); err != nil {
			return nil, fmt.Errorf("loading latest interactions: %w", err)
		}
	}

	_, updated, err := s.planLoop(c, *desired, cfg.OverrideExisting, cfg.ScheduleMissing, cfg.Anchor, latest, s.now())
	return updated, err
}
