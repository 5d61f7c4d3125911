package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/calagora/freebusy-backend/internal/model"
)

const (
	dateTimeUTCLayout   = "20060102T150405Z"
	dateTimeLocalLayout = "20060102T150405"
	dateLayout          = "20060102"
)

// ObjectInfo is the scheduling view of a stored calendar object: the master
// component's identity, busy classification and recurrence data. Override
// components (RECURRENCE-ID) are ignored, the master defines the object.
type ObjectInfo struct {
	UID       string
	Component string
	Summary   string
	Organizer string
	Attendees []string
	Status    model.BusyStatus
	Start     time.Time
	End       time.Time
	Floating  bool
	RRule     string
	ExDates   []time.Time
}

// ParseObject parses raw iCalendar data and extracts the master VEVENT.
// Fixed times are normalized to UTC, floating times keep their wall clock
// stamped as UTC with Floating set.
func ParseObject(data []byte) (*ObjectInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty object data: %w", model.ErrInvalidObject)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse object data (%v): %w", err, model.ErrInvalidObject)
	}

	for _, ve := range cal.Events() {
		// Overrides carry RECURRENCE-ID, the master does not.
		if ve.GetProperty("RECURRENCE-ID") != nil {
			continue
		}

		return parseMaster(ve)
	}

	return nil, fmt.Errorf("no schedulable component: %w", model.ErrInvalidObject)
}

func parseMaster(ve *ical.VEvent) (*ObjectInfo, error) {
	info := &ObjectInfo{Component: "VEVENT"}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return nil, fmt.Errorf("missing UID: %w", model.ErrInvalidObject)
	}
	info.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		info.Summary = p.Value
	}
	if p := ve.GetProperty("ORGANIZER"); p != nil {
		info.Organizer = p.Value
	}
	for _, p := range ve.GetProperties("ATTENDEE") {
		if p.Value != "" {
			info.Attendees = append(info.Attendees, p.Value)
		}
	}

	info.Status = parseStatus(ve)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return nil, fmt.Errorf("missing DTSTART: %w", model.ErrInvalidObject)
	}

	start, floating, allDay, err := parseDateTime(dtStart)
	if err != nil {
		return nil, err
	}
	info.Start = start
	info.Floating = floating

	switch dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtEnd != nil && dtEnd.Value != "":
		end, _, _, err := parseDateTime(dtEnd)
		if err != nil {
			return nil, err
		}
		info.End = end
	case allDay:
		info.End = start.Add(24 * time.Hour)
	default:
		info.End = start
	}

	if info.End.Before(info.Start) {
		return nil, fmt.Errorf("DTEND before DTSTART: %w", model.ErrInvalidObject)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		info.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			ex, err := parseDateTimeValue(part, exdateLocation(p))
			if err != nil {
				return nil, fmt.Errorf("bad EXDATE %q: %w", part, model.ErrInvalidObject)
			}
			info.ExDates = append(info.ExDates, ex)
		}
	}

	return info, nil
}

// parseStatus maps TRANSP and STATUS onto the busy classification used for
// free/busy. Transparent and cancelled components take no time.
func parseStatus(ve *ical.VEvent) model.BusyStatus {
	if p := ve.GetProperty("TRANSP"); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return model.StatusFree
	}

	if p := ve.GetProperty("STATUS"); p != nil {
		switch strings.ToUpper(p.Value) {
		case "CANCELLED":
			return model.StatusFree
		case "TENTATIVE":
			return model.StatusTentative
		}
	}

	return model.StatusBusy
}

// parseDateTime resolves a DTSTART/DTEND property into UTC. A value with a
// zone (Z suffix or known TZID) is fixed; everything else, dates included,
// floats and keeps its wall clock.
func parseDateTime(prop *ical.IANAProperty) (t time.Time, floating, allDay bool, err error) {
	value := strings.TrimSpace(prop.Value)

	if isDateValue(prop, value) {
		t, err = time.Parse(dateLayout, value)
		if err != nil {
			return time.Time{}, false, false, fmt.Errorf("bad date %q: %w", value, model.ErrInvalidObject)
		}
		return t, true, true, nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err = time.Parse(dateTimeUTCLayout, value)
		if err != nil {
			return time.Time{}, false, false, fmt.Errorf("bad date-time %q: %w", value, model.ErrInvalidObject)
		}
		return t, false, false, nil
	}

	if tzids, ok := prop.ICalParameters["TZID"]; ok && len(tzids) > 0 {
		if loc, lerr := time.LoadLocation(tzids[0]); lerr == nil {
			t, err = time.ParseInLocation(dateTimeLocalLayout, value, loc)
			if err != nil {
				return time.Time{}, false, false, fmt.Errorf("bad date-time %q: %w", value, model.ErrInvalidObject)
			}
			return t.UTC(), false, false, nil
		}
		// Unknown zone identifiers degrade to floating rather than failing
		// the whole object.
	}

	t, err = time.Parse(dateTimeLocalLayout, value)
	if err != nil {
		return time.Time{}, false, false, fmt.Errorf("bad date-time %q: %w", value, model.ErrInvalidObject)
	}

	return t, true, false, nil
}

// parseDateTimeValue handles bare EXDATE values with an optional TZID taken
// from the property.
func parseDateTimeValue(value string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		return time.Parse(dateTimeUTCLayout, value)
	}
	if strings.Contains(value, "T") {
		t, err := time.ParseInLocation(dateTimeLocalLayout, value, loc)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	return time.Parse(dateLayout, value)
}

func exdateLocation(p *ical.IANAProperty) *time.Location {
	if tzids, ok := p.ICalParameters["TZID"]; ok && len(tzids) > 0 {
		if loc, err := time.LoadLocation(tzids[0]); err == nil {
			return loc
		}
	}
	return time.UTC
}

func isDateValue(prop *ical.IANAProperty, value string) bool {
	if values, ok := prop.ICalParameters["VALUE"]; ok && len(values) > 0 && strings.EqualFold(values[0], "DATE") {
		return true
	}
	return !strings.Contains(value, "T")
}
