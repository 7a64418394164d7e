package rules

import (
	"fmt"
	"strings"
)

// LoopStrategy picks between several matching loop rules.
type LoopStrategy string

const (
	StrategyShortest LoopStrategy = "shortest"
	StrategyPriority LoopStrategy = "priority"
)

// ParseLoopStrategy accepts "shortest" and "priority". Blank means shortest.
func ParseLoopStrategy(s string) (LoopStrategy, error) {
	switch LoopStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyShortest:
		return StrategyShortest, nil
	case StrategyPriority:
		return StrategyPriority, nil
	}
	return "", fmt.Errorf("unknown loop strategy %q", s)
}

// LoopRule maps a tag to a cadence.
type LoopRule struct {
	Tag         string // normalized
	CadenceDays int
	Priority    int
}

// LoopPolicy derives a contact's cadence from its tags.
type LoopPolicy struct {
	DefaultCadenceDays *int
	Strategy           LoopStrategy
	Rules              []LoopRule
}

// Empty reports whether the policy can never produce a cadence.
func (p LoopPolicy) Empty() bool {
	return p.DefaultCadenceDays == nil && len(p.Rules) == 0
}

// ResolveCadence returns the cadence for a contact carrying tags. matched is
// false when no rule applied and the default (possibly nil) was used.
//
// Shortest picks the smallest cadence among matching rules. Priority picks
// the highest priority, then the shorter cadence, then the smaller tag name.
func (p LoopPolicy) ResolveCadence(tags []string) (days *int, matched bool) {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = true
		}
	}

	var best *LoopRule
	for i := range p.Rules {
		r := &p.Rules[i]
		if !set[r.Tag] {
			continue
		}
		if best == nil || p.better(r, best) {
			best = r
		}
	}
	if best == nil {
		return p.DefaultCadenceDays, false
	}
	d := best.CadenceDays
	return &d, true
}

func (p LoopPolicy) better(candidate, current *LoopRule) bool {
	if p.Strategy == StrategyPriority && candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	if candidate.CadenceDays != current.CadenceDays {
		return candidate.CadenceDays < current.CadenceDays
	}
	return candidate.Tag < current.Tag
}

// LoopAnchor selects the instant a newly scheduled loop cadence counts from.
type LoopAnchor string

const (
	AnchorNow             LoopAnchor = "now"
	AnchorCreatedAt       LoopAnchor = "created-at"
	AnchorLastInteraction LoopAnchor = "last-interaction"
)

// ParseLoopAnchor accepts the three anchor names. Blank means now.
func ParseLoopAnchor(s string) (LoopAnchor, error) {
	switch LoopAnchor(strings.ToLower(strings.TrimSpace(s))) {
	case "", AnchorNow:
		return AnchorNow, nil
	case AnchorCreatedAt:
		return AnchorCreatedAt, nil
	case AnchorLastInteraction:
		return AnchorLastInteraction, nil
	}
	return "", fmt.Errorf("unknown loop anchor %q", s)
}
