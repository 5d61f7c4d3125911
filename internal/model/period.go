package model

import "time"

// Period is a half-open interval [Start, End). Floating periods carry local
// wall-clock time stamped as UTC; they must only be compared against other
// floating values.
type Period struct {
	Start    time.Time
	End      time.Time
	Floating bool
}

func NewPeriod(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}

	return Period{Start: start, End: end}, nil
}

func (p Period) Overlaps(o Period) bool {
	return p.Start.Before(o.End) && p.End.After(o.Start)
}

// InZone renders the period as the wall-clock times it has in loc, stamped
// UTC, for comparison against floating values.
func (p Period) InZone(loc *time.Location) Period {
	return Period{Start: stampWallClock(p.Start, loc), End: stampWallClock(p.End, loc), Floating: true}
}

func stampWallClock(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), 0, time.UTC)
}

// String renders the period in absolute iCalendar notation, e.g.
// 20080601T120000Z/20080601T130000Z.
func (p Period) String() string {
	return ICalDateTime(p.Start) + "/" + ICalDateTime(p.End)
}

func ICalDateTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

type BusyStatus int

const (
	StatusFree BusyStatus = iota
	StatusBusy
	StatusTentative
	StatusUnavailable
)

func (s BusyStatus) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusBusy:
		return "BUSY"
	case StatusTentative:
		return "BUSY-TENTATIVE"
	case StatusUnavailable:
		return "BUSY-UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Instance is one expanded occurrence of a calendar object. ID is the
// time-span row identifier the per-user transparency overlay is keyed by.
type Instance struct {
	ID     int64
	Status BusyStatus
	Period
}

// FBInfo accumulates classified periods for a single free-busy request.
// It is owned by that request and never shared.
type FBInfo struct {
	Busy        []Period
	Tentative   []Period
	Unavailable []Period

	// Details collects disclosed instances when the requester may see them.
	Details []EventDetail
}

// EventDetail is a disclosed copy of a matched instance, stripped down to
// its time bounds.
type EventDetail struct {
	Start time.Time
	End   time.Time
}
