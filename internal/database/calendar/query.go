package calendar

import (
	"context"
	"fmt"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/model"
)

// Object columns are fully qualified because compiled clauses may join
// time_range, which shares column names.
const objectColumns = "calendar_object.resource_id, " +
	"calendar_object.calendar_resource_id, " +
	"calendar_object.name, " +
	"calendar_object.etag, " +
	"calendar_object.icalendar_uid, " +
	"calendar_object.icalendar_type, " +
	"calendar_object.summary, " +
	"calendar_object.organizer, " +
	"calendar_object.attendees, " +
	"calendar_object.status, " +
	"calendar_object.recurrence_rule, " +
	"calendar_object.floating, " +
	"calendar_object.start_date, " +
	"calendar_object.end_date, " +
	"calendar_object.expanded_until, " +
	"calendar_object.data"

// MatchingObjects runs a compiled filter clause and returns the distinct
// matched objects. The clause arrives with :N placeholders and is rebound
// for pgx.
func (*Repository) MatchingObjects(ctx context.Context, q database.Queryable, clause string, args []interface{}) ([]*model.CalendarObject, error) {
	sql := "select distinct " + objectColumns + database.Rebind(clause)

	var dtos []*objectDTO
	if err := q.SelectRaw(ctx, &dtos, sql, args...); err != nil {
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	res := make([]*model.CalendarObject, len(dtos))
	for i, d := range dtos {
		res[i] = mapToObject(d)
	}

	return res, nil
}
