package calendar

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/model"
)

func (*Repository) CreateCalendar(ctx context.Context, q database.Queryable, info *model.CalendarCreate) (int64, error) {
	qb := database.PSQL.
		Insert(database.CalendarsTable).
		Columns("owner_id", "name", "free_busy_visible", "ctag").
		Values(
			info.OwnerID,
			info.Name,
			info.FreeBusyVisible,
			uuid.NewString(),
		).
		Suffix("returning id")

	var id int64
	if err := q.Get(ctx, &id, qb); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, model.ErrAlreadyExists
		}
		return 0, fmt.Errorf("SQL request: %w", err)
	}

	return id, nil
}

func (*Repository) GetCalendar(ctx context.Context, q database.Queryable, ownerID int64, name string) (*model.Calendar, error) {
	calendars, err := getCalendars(ctx, q, sq.Eq{"owner_id": ownerID, "name": name})
	if err != nil {
		return nil, err
	}

	if len(calendars) == 0 {
		return nil, model.ErrNoRecord
	}

	return calendars[0], nil
}

// ListFreeBusyCalendars returns the owner's calendars that contribute to
// free/busy aggregation.
func (*Repository) ListFreeBusyCalendars(ctx context.Context, q database.Queryable, ownerID int64) ([]*model.Calendar, error) {
	return getCalendars(ctx, q, sq.Eq{"owner_id": ownerID, "free_busy_visible": true})
}

// TouchCTag stamps a fresh change tag after any mutation inside the
// collection.
func (*Repository) TouchCTag(ctx context.Context, q database.Queryable, id int64) error {
	qb := database.PSQL.
		Update(database.CalendarsTable).
		Set("ctag", uuid.NewString()).
		Where(sq.Eq{"id": id})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

func (*Repository) DeleteCalendar(ctx context.Context, q database.Queryable, id int64) error {
	qb := database.PSQL.
		Delete(database.CalendarsTable).
		Where(sq.Eq{"id": id})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

func getCalendars(ctx context.Context, q database.Queryable, predicate interface{}) ([]*model.Calendar, error) {
	qb := baseCalendarQuery.
		Where(predicate).
		OrderBy("id")

	var dtos []*calendarDTO
	if err := q.Select(ctx, &dtos, qb); err != nil {
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	res := make([]*model.Calendar, len(dtos))
	for i, d := range dtos {
		res[i] = mapToCalendar(d)
	}

	return res, nil
}
