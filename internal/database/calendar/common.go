package calendar

import "github.com/calagora/freebusy-backend/internal/database"

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

var baseQuery = database.PSQL.
	Select(
		"resource_id",
		"calendar_resource_id",
		"name",
		"etag",
		"icalendar_uid",
		"icalendar_type",
		"summary",
		"organizer",
		"attendees",
		"status",
		"recurrence_rule",
		"floating",
		"start_date",
		"end_date",
		"expanded_until",
		"data",
	).
	From(database.ObjectsTable)

var baseCalendarQuery = database.PSQL.
	Select(
		"id",
		"owner_id",
		"name",
		"free_busy_visible",
		"ctag",
	).
	From(database.CalendarsTable)
