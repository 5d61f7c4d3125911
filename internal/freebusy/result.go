package freebusy

import (
	"strings"

	"github.com/calagora/freebusy-backend/internal/model"
)

const prodID = "-//calagora//freebusy-backend//EN"

// BuildResult renders the aggregated free/busy document: a VCALENDAR with
// one minimal VEVENT per disclosed detail followed by a single VFREEBUSY.
// Buckets are merged before rendering and empty buckets emit no FREEBUSY
// property. Lines are CRLF terminated.
func BuildResult(fbinfo *model.FBInfo, rng model.Period, organizer, attendee string, details []model.EventDetail) string {
	var b strings.Builder

	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:"+prodID)

	for _, d := range details {
		writeLine(&b, "BEGIN:VEVENT")
		writeLine(&b, "DTSTART:"+model.ICalDateTime(d.Start))
		writeLine(&b, "DTEND:"+model.ICalDateTime(d.End))
		writeLine(&b, "END:VEVENT")
	}

	writeLine(&b, "BEGIN:VFREEBUSY")
	writeLine(&b, "DTSTART:"+model.ICalDateTime(rng.Start))
	writeLine(&b, "DTEND:"+model.ICalDateTime(rng.End))
	if organizer != "" {
		writeLine(&b, "ORGANIZER:"+organizer)
	}
	if attendee != "" {
		writeLine(&b, "ATTENDEE:"+attendee)
	}
	writeFreeBusy(&b, model.StatusBusy, fbinfo.Busy)
	writeFreeBusy(&b, model.StatusTentative, fbinfo.Tentative)
	writeFreeBusy(&b, model.StatusUnavailable, fbinfo.Unavailable)
	writeLine(&b, "END:VFREEBUSY")

	writeLine(&b, "END:VCALENDAR")

	return b.String()
}

func writeFreeBusy(b *strings.Builder, status model.BusyStatus, periods []model.Period) {
	merged := mergePeriods(periods)
	if len(merged) == 0 {
		return
	}

	values := make([]string, len(merged))
	for i, p := range merged {
		values[i] = p.String()
	}

	writeLine(b, "FREEBUSY;FBTYPE="+status.String()+":"+strings.Join(values, ","))
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}
