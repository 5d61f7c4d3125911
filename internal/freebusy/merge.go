package freebusy

import (
	"sort"

	"github.com/calagora/freebusy-backend/internal/model"
)

// mergePeriods normalizes a bucket: stable sort by start, then coalesce
// every period that starts at or before the current run's end. Merging a
// merged bucket changes nothing, and input order does not matter.
func mergePeriods(periods []model.Period) []model.Period {
	if len(periods) == 0 {
		return nil
	}

	sorted := make([]model.Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	res := sorted[:1]
	for _, p := range sorted[1:] {
		last := &res[len(res)-1]
		if p.Start.After(last.End) {
			res = append(res, p)
			continue
		}
		if p.End.After(last.End) {
			last.End = p.End
		}
	}

	return res
}
