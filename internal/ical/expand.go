package ical

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"github.com/calagora/freebusy-backend/internal/model"
)

const defaultMaxInstances = 5000

// Instances expands an object into the concrete periods overlapping rng.
// Recurring objects are expanded through their RRULE with EXDATEs removed;
// expansion is silently capped at max occurrences (defaultMaxInstances when
// max is zero). Floating objects expand in their own wall clock, so rng is
// compared as stamped.
func Instances(info *ObjectInfo, rng model.Period, max int) ([]model.Period, error) {
	if max <= 0 {
		max = defaultMaxInstances
	}

	duration := info.End.Sub(info.Start)

	if info.RRule == "" {
		p := model.Period{Start: info.Start, End: info.End, Floating: info.Floating}
		if !p.Overlaps(rng) {
			return nil, nil
		}
		return []model.Period{p}, nil
	}

	rule, err := rrule.StrToRRule(info.RRule)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence rule %q: %w", info.RRule, model.ErrInvalidObject)
	}
	rule.DTStart(info.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range info.ExDates {
		set.ExDate(ex)
	}

	// Pull starts back by one duration so instances straddling the range
	// start are kept.
	starts := set.Between(rng.Start.Add(-duration), rng.End, true)
	if len(starts) > max {
		starts = starts[:max]
	}

	var periods []model.Period
	for _, start := range starts {
		p := model.Period{Start: start, End: start.Add(duration), Floating: info.Floating}
		if !p.Overlaps(rng) {
			continue
		}
		periods = append(periods, p)
	}

	return periods, nil
}
