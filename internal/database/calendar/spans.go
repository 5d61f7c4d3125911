package calendar

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/model"
)

// ReplaceSpans swaps an object's expanded time spans for a new set. The
// per-user overlay rows cascade away with the old spans.
func (*Repository) ReplaceSpans(ctx context.Context, q database.Queryable, calendarID, objectID int64, status model.BusyStatus, spans []model.Period) error {
	del := database.PSQL.
		Delete(database.TimeRangesTable).
		Where(sq.Eq{"calendar_object_resource_id": objectID})

	if _, err := q.Exec(ctx, del); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	if len(spans) == 0 {
		return nil
	}

	qb := database.PSQL.
		Insert(database.TimeRangesTable).
		Columns(
			"calendar_resource_id",
			"calendar_object_resource_id",
			"floating",
			"start_date",
			"end_date",
			"fbtype",
		)

	for _, span := range spans {
		qb = qb.Values(calendarID, objectID, span.Floating, span.Start, span.End, status)
	}

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

func (*Repository) SetExpandedUntil(ctx context.Context, q database.Queryable, objectID int64, until time.Time) error {
	qb := database.PSQL.
		Update(database.ObjectsTable).
		Set("expanded_until", until).
		Where(sq.Eq{"resource_id": objectID})

	if _, err := q.Exec(ctx, qb); err != nil {
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}

// StaleObjects lists recurring objects whose span index no longer reaches
// the wanted horizon, oldest expansion first.
func (*Repository) StaleObjects(ctx context.Context, q database.Queryable, horizon time.Time, limit uint64) ([]*model.CalendarObject, error) {
	qb := baseQuery.
		Where(sq.NotEq{"recurrence_rule": ""}).
		Where(sq.Lt{"expanded_until": horizon}).
		OrderBy("expanded_until").
		Limit(limit)

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
