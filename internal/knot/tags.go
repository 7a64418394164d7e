package knot

import (
	"fmt"
	"slices"

	"knot-go/internal/model"
)

// TagContact adds tags to a contact.
func (s *KnotService) TagContact(id string, names ...string) ([]string, error) {
	return s.changeTags(id, names, tagsAdded, s.database.AddTags, "tags added")
}

// UntagContact removes tags from a contact. Tags the contact does not carry
// are ignored.
func (s *KnotService) UntagContact(id string, names ...string) ([]string, error) {
	return s.changeTags(id, names, tagsRemoved, s.database.RemoveTags, "tags removed")
}

// SetTags replaces a contact's tag set wholesale.
func (s *KnotService) SetTags(id string, names []string) ([]string, error) {
	return s.changeTags(id, names, tagsReplaced, s.database.SetContactTags, "tags set")
}

// changeTags writes the tag change and, when loops apply on tag changes, the
// resulting cadence in one database call.
func (s *KnotService) changeTags(id string, names []string, result func(current, names []string) []string,
	apply func(string, []string, *model.Contact) error, msg string) ([]string, error) {
	c, err := s.mustContact(id)
	if err != nil {
		return nil, err
	}
	normalized, err := model.NormalizeTags(names)
	if err != nil {
		return nil, err
	}

	var updated *model.Contact
	if s.settings.Loops.ApplyOnTagChange && !c.Archived() {
		current, err := s.database.ListContactTags(id)
		if err != nil {
			return nil, fmt.Errorf("listing tags: %w", err)
		}
		if updated, err = s.planTagLoop(c, result(current, normalized)); err != nil {
			return nil, err
		}
	}

	if err := apply(id, normalized, updated); err != nil {
		return nil, fmt.Errorf("updating tags: %w", err)
	}
	s.logger.Info(msg, "id", id, "tags", normalized)
	if updated != nil {
		s.logger.Info("loop applied", "id", id, "cadence_days", *updated.CadenceDays)
	}

	tags, err := s.database.ListContactTags(id)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

func tagsAdded(current, names []string) []string {
	out := slices.Clone(current)
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func tagsRemoved(current, names []string) []string {
	return slices.DeleteFunc(slices.Clone(current), func(t string) bool {
		return slices.Contains(names, t)
	})
}

func tagsReplaced(_, names []string) []string {
	return names
}

// ListTags returns every tag with its contact count.
func (s *KnotService) ListTags() ([]model.TagCount, error) {
	counts, err := s.database.ListTagCounts()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return counts, nil
}
