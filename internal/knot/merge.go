package knot

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"knot-go/internal/model"
)

// ErrCandidateClosed is returned when applying or dismissing a merge
// candidate that is no longer open.
var ErrCandidateClosed = errors.New("merge candidate is not open")

// sameNameSource tags candidates created by ScanSameName.
const sameNameSource = "scan:same-name"

// MergePreference picks which contact's fields win a merge.
type MergePreference string

const (
	PreferPrimary   MergePreference = "primary"
	PreferSecondary MergePreference = "secondary"
)

// TouchpointPreference picks the merged contact's next touchpoint.
type TouchpointPreference string

const (
	TouchpointEarliest  TouchpointPreference = "earliest"
	TouchpointLatest    TouchpointPreference = "latest"
	TouchpointPrimary   TouchpointPreference = "primary"
	TouchpointSecondary TouchpointPreference = "secondary"
)

// ArchivedPreference picks whether the merged contact is archived.
type ArchivedPreference string

const (
	ArchivedActiveIfAny ArchivedPreference = "active-if-any"
	ArchivedPrimary     ArchivedPreference = "primary"
	ArchivedSecondary   ArchivedPreference = "secondary"
)

// MergeOptions controls how two contacts' fields are combined. Zero values
// mean primary, earliest and active-if-any.
type MergeOptions struct {
	Prefer     MergePreference
	Touchpoint TouchpointPreference
	Archived   ArchivedPreference
}

// Validate rejects unknown option values.
func (o MergeOptions) Validate() error {
	switch o.Prefer {
	case "", PreferPrimary, PreferSecondary:
	default:
		return &model.ValidationError{Field: "prefer", Value: string(o.Prefer), Err: model.ErrInvalidMergeOption}
	}
	switch o.Touchpoint {
	case "", TouchpointEarliest, TouchpointLatest, TouchpointPrimary, TouchpointSecondary:
	default:
		return &model.ValidationError{Field: "touchpoint", Value: string(o.Touchpoint), Err: model.ErrInvalidMergeOption}
	}
	switch o.Archived {
	case "", ArchivedActiveIfAny, ArchivedPrimary, ArchivedSecondary:
	default:
		return &model.ValidationError{Field: "archived", Value: string(o.Archived), Err: model.ErrInvalidMergeOption}
	}
	return nil
}

// MergeContacts folds secondaryID into primaryID. The primary keeps its id;
// the secondary's interactions, emails, tags and dates move to it and the
// secondary is deleted.
func (s *KnotService) MergeContacts(primaryID, secondaryID string, opts MergeOptions) (*model.Contact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if primaryID == secondaryID {
		return nil, &model.ValidationError{Field: "merge", Value: primaryID, Err: model.ErrSelfMerge}
	}
	primary, err := s.mustContact(primaryID)
	if err != nil {
		return nil, err
	}
	secondary, err := s.mustContact(secondaryID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	merged := mergeFields(primary, secondary, opts, now)
	if err := s.checkMergedEmails(merged, secondaryID); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.database.MergeContacts(merged, secondaryID, now); err != nil {
		return nil, fmt.Errorf("merging contacts: %w", err)
	}

	s.logger.Info("contacts merged", "id", merged.ID, "merged", secondaryID, "name", merged.DisplayName)
	return merged, nil
}

// checkMergedEmails validates the union of both contacts' addresses with
// merged's primary marked.
func (s *KnotService) checkMergedEmails(merged *model.Contact, secondaryID string) error {
	var all []model.ContactEmail
	for _, id := range []string{merged.ID, secondaryID} {
		emails, err := s.database.ListEmails(id)
		if err != nil {
			return fmt.Errorf("listing emails: %w", err)
		}
		all = append(all, emails...)
	}
	for i := range all {
		all[i].IsPrimary = merged.Email != nil && all[i].Email == *merged.Email
	}
	return model.ValidateEmails(all)
}

// mergeFields combines two contacts. The preferred contact's fields win and
// the other fills whatever it leaves unset.
func mergeFields(primary, secondary *model.Contact, opts MergeOptions, now time.Time) *model.Contact {
	win, other := primary, secondary
	if opts.Prefer == PreferSecondary {
		win, other = secondary, primary
	}

	merged := *primary
	merged.DisplayName = win.DisplayName
	merged.Email = firstSet(win.Email, other.Email)
	merged.Phone = firstSet(win.Phone, other.Phone)
	merged.Handle = firstSet(win.Handle, other.Handle)
	merged.Timezone = firstSet(win.Timezone, other.Timezone)
	merged.CadenceDays = firstSet(win.CadenceDays, other.CadenceDays)
	if secondary.CreatedAt.Before(primary.CreatedAt) {
		merged.CreatedAt = secondary.CreatedAt
	}

	p, q := primary.NextTouchpointAt, secondary.NextTouchpointAt
	switch opts.Touchpoint {
	case TouchpointLatest:
		merged.NextTouchpointAt = pickTime(p, q, func(a, b time.Time) bool { return a.After(b) })
	case TouchpointPrimary:
		merged.NextTouchpointAt = firstSet(p, q)
	case TouchpointSecondary:
		merged.NextTouchpointAt = firstSet(q, p)
	default:
		merged.NextTouchpointAt = pickTime(p, q, func(a, b time.Time) bool { return a.Before(b) })
	}

	switch opts.Archived {
	case ArchivedPrimary:
		merged.ArchivedAt = primary.ArchivedAt
	case ArchivedSecondary:
		merged.ArchivedAt = secondary.ArchivedAt
	default:
		merged.ArchivedAt = nil
		if primary.Archived() && secondary.Archived() {
			merged.ArchivedAt = primary.ArchivedAt
		}
	}

	merged.UpdatedAt = now
	return &merged
}

func firstSet[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

// pickTime returns whichever of a and b better wins, ignoring nils.
func pickTime(a, b *time.Time, better func(x, y time.Time) bool) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case better(*b, *a):
		return b
	default:
		return a
	}
}

// ScanOptions narrows a same-name scan.
type ScanOptions struct {
	IncludeArchived bool
	Limit           int // duplicate groups to scan, 0 for all
	DryRun          bool
}

// Scan pair statuses.
const (
	PairCreated     = "created"
	PairDryRun      = "dry-run"
	PairSkippedOpen = "skipped-existing-open"
)

// ScanPair is one secondary contact proposed for merging into a group's
// preferred contact.
type ScanPair struct {
	PrimaryID   string
	SecondaryID string
	Status      string
}

// ScanGroup is a set of contacts sharing a normalized display name.
type ScanGroup struct {
	DisplayName    string
	NormalizedName string
	PreferredID    string
	Pairs          []ScanPair
}

// ScanReport summarizes ScanSameName.
type ScanReport struct {
	Considered   int
	SkippedEmpty int
	Groups       int
	Scanned      int
	Created      int
	SkippedOpen  int
	DryRun       bool
	Results      []ScanGroup
}

// ScanSameName groups contacts by normalized display name and proposes a
// merge candidate for each duplicate against the group's preferred contact.
// It never merges. Groups are ordered by size, largest first, then name.
func (s *KnotService) ScanSameName(opts ScanOptions) (*ScanReport, error) {
	list, err := s.ListContacts("")
	if err != nil {
		return nil, err
	}
	if opts.IncludeArchived {
		archived, err := s.ListContacts("archived:true")
		if err != nil {
			return nil, err
		}
		list = append(list, archived...)
	}

	report := &ScanReport{Considered: len(list), DryRun: opts.DryRun}
	groups := make(map[string][]*model.Contact)
	for _, summary := range list {
		key := model.NormalizeDisplayName(summary.Contact.DisplayName)
		if key == "" {
			report.SkippedEmpty++
			continue
		}
		groups[key] = append(groups[key], summary.Contact)
	}

	var keys []string
	for key, members := range groups {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(groups[b]), len(groups[a])), strings.Compare(a, b))
	})
	report.Groups = len(keys)
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}
	report.Scanned = len(keys)

	open, err := s.openPairs()
	if err != nil {
		return nil, err
	}

	now := s.now()
	var pending []*model.MergeCandidate
	for _, key := range keys {
		members := groups[key]
		slices.SortFunc(members, func(a, b *model.Contact) int { return strings.Compare(a.ID, b.ID) })
		preferred := choosePreferred(members)
		group := ScanGroup{DisplayName: preferred.DisplayName, NormalizedName: key, PreferredID: preferred.ID}

		for _, c := range members {
			if c.ID == preferred.ID {
				continue
			}
			pair := ScanPair{PrimaryID: preferred.ID, SecondaryID: c.ID}
			switch {
			case open[pairKey(preferred.ID, c.ID)]:
				pair.Status = PairSkippedOpen
				report.SkippedOpen++
			case opts.DryRun:
				pair.Status = PairDryRun
			default:
				m, err := model.NewMergeCandidate(s.idgen.New(), preferred.ID, c.ID, model.ReasonNameDuplicate, now)
				if err != nil {
					return nil, err
				}
				source, preferredID := sameNameSource, preferred.ID
				m.Source, m.PreferredContactID = &source, &preferredID
				pending = append(pending, m)
				pair.Status = PairCreated
			}
			group.Pairs = append(group.Pairs, pair)
		}
		report.Results = append(report.Results, group)
	}

	if len(pending) > 0 {
		if report.Created, err = s.database.CreateMergeCandidates(pending); err != nil {
			return nil, fmt.Errorf("creating merge candidates: %w", err)
		}
	}
	s.logger.Info("same-name scan", "considered", report.Considered, "groups", report.Groups,
		"created", report.Created, "skipped_open", report.SkippedOpen, "dry_run", opts.DryRun)
	return report, nil
}

func (s *KnotService) openPairs() (map[[2]string]bool, error) {
	open, err := s.database.ListMergeCandidates(model.MergeOpen)
	if err != nil {
		return nil, fmt.Errorf("listing merge candidates: %w", err)
	}
	out := make(map[[2]string]bool, len(open))
	for _, m := range open {
		out[pairKey(m.ContactAID, m.ContactBID)] = true
	}
	return out, nil
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// choosePreferred picks the contact the rest of a group should merge into:
// active before archived, then the most identifiers (email, phone, handle),
// then the most recently updated, then the oldest.
func choosePreferred(members []*model.Contact) *model.Contact {
	candidates := slices.DeleteFunc(slices.Clone(members), (*model.Contact).Archived)
	if len(candidates) == 0 {
		candidates = members
	}
	return slices.MaxFunc(candidates, func(a, b *model.Contact) int {
		return cmp.Or(
			cmp.Compare(identityScore(a), identityScore(b)),
			a.UpdatedAt.Compare(b.UpdatedAt),
			b.CreatedAt.Compare(a.CreatedAt),
		)
	})
}

func identityScore(c *model.Contact) int {
	score := 0
	for _, v := range []*string{c.Email, c.Phone, c.Handle} {
		if v != nil && strings.TrimSpace(*v) != "" {
			score++
		}
	}
	return score
}

// ListMergeCandidates returns merge candidates newest first. An empty
// status lists all of them.
func (s *KnotService) ListMergeCandidates(status string) ([]*model.MergeCandidate, error) {
	if status != "" {
		var err error
		if status, err = model.ParseMergeStatus(status); err != nil {
			return nil, err
		}
	}
	out, err := s.database.ListMergeCandidates(status)
	if err != nil {
		return nil, fmt.Errorf("listing merge candidates: %w", err)
	}
	return out, nil
}

// ApplyMergeCandidate merges an open candidate's pair into its preferred
// contact, or contact A when none is recorded.
func (s *KnotService) ApplyMergeCandidate(id string, opts MergeOptions) (*model.Contact, error) {
	m, err := s.mustOpenCandidate(id)
	if err != nil {
		return nil, err
	}
	primary, secondary := m.ContactAID, m.ContactBID
	if m.PreferredContactID != nil && *m.PreferredContactID == secondary {
		primary, secondary = secondary, primary
	}
	return s.MergeContacts(primary, secondary, opts)
}

// DismissMergeCandidate closes an open candidate without merging.
func (s *KnotService) DismissMergeCandidate(id string) error {
	if _, err := s.mustOpenCandidate(id); err != nil {
		return err
	}
	if err := s.database.DismissMergeCandidate(id, s.now()); err != nil {
		return fmt.Errorf("dismissing merge candidate: %w", err)
	}
	s.logger.Info("merge candidate dismissed", "id", id)
	return nil
}

func (s *KnotService) mustOpenCandidate(id string) (*model.MergeCandidate, error) {
	m, err := s.database.FindMergeCandidate(id)
	if err != nil {
		return nil, fmt.Errorf("finding merge candidate: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("merge candidate %s: %w", id, ErrNotFound)
	}
	if !m.Open() {
		return nil, fmt.Errorf("merge candidate %s is %s: %w", id, m.Status, ErrCandidateClosed)
	}
	return m, nil
}
