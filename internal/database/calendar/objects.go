package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/model"
)

// PutObject stores or replaces the object at (calendar, name) and stamps a
// fresh ETag. Span rows are replaced separately, run both inside one
// transaction.
func (*Repository) PutObject(ctx context.Context, q database.Queryable, object *model.ObjectCreate, expandedUntil time.Time) (*model.CalendarObject, error) {
	etag := uuid.NewString()

	qb := database.PSQL.
		Insert(database.ObjectsTable).
		Columns(
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
		Values(
			object.CalendarID,
			object.Name,
			etag,
			object.UID,
			object.Component,
			object.Summary,
			object.Organizer,
			object.Attendees,
			object.Status,
			object.RRule,
			object.Floating,
			object.From,
			object.To,
			expandedUntil,
			object.Data,
		).
		Suffix(`on conflict (calendar_resource_id, name) do update set
			etag = excluded.etag,
			icalendar_uid = excluded.icalendar_uid,
			icalendar_type = excluded.icalendar_type,
			summary = excluded.summary,
			organizer = excluded.organizer,
			attendees = excluded.attendees,
			status = excluded.status,
			recurrence_rule = excluded.recurrence_rule,
			floating = excluded.floating,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			expanded_until = excluded.expanded_until,
			data = excluded.data
		returning resource_id`)

	var id int64
	if err := q.Get(ctx, &id, qb); err != nil {
		// Another resource in this calendar already claims the UID.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, model.ErrAlreadyExists
		}
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	return &model.CalendarObject{
		ID:            id,
		ETag:          etag,
		ExpandedUntil: expandedUntil,
		ObjectCreate:  *object,
	}, nil
}

func (*Repository) GetObject(ctx context.Context, q database.Queryable, calendarID int64, name string) (*model.CalendarObject, error) {
	objects, err := getObjects(ctx, q, sq.Eq{"calendar_resource_id": calendarID, "name": name})
	if err != nil {
		return nil, err
	}

	if len(objects) == 0 {
		return nil, model.ErrNoRecord
	}

	return objects[0], nil
}

func (*Repository) ListObjects(ctx context.Context, q database.Queryable, calendarID int64) ([]*model.CalendarObject, error) {
	return getObjects(ctx, q, sq.Eq{"calendar_resource_id": calendarID})
}

func (*Repository) DeleteObject(ctx context.Context, q database.Queryable, calendarID int64, name string) error {
	qb := database.PSQL.
		Delete(database.ObjectsTable).
		Where(sq.Eq{"calendar_resource_id": calendarID, "name": name})

	tag, err := q.Exec(ctx, qb)
	if err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrNoRecord
	}

	return nil
}

func getObjects(ctx context.Context, q database.Queryable, predicate interface{}) ([]*model.CalendarObject, error) {
	qb := baseQuery.
		Where(predicate).
		OrderBy("resource_id")

	var dtos []*objectDTO
	if err := q.Select(ctx, &dtos, qb); err != nil {
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	res := make([]*model.CalendarObject, len(dtos))
	for i, d := range dtos {
		res[i] = mapToObject(d)
	}

	return res, nil
}
