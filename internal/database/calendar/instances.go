package calendar

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/model"
)

// InstancesInRange reads one object's spans overlapping the range, with the
// user's transparency overlay applied. Fixed spans are tested against rng,
// floating spans against floatRng, the same range rendered in the viewer's
// zone.
func (*Repository) InstancesInRange(ctx context.Context, q database.Queryable, objectID, userID int64, rng, floatRng model.Period) ([]model.Instance, error) {
	qb := database.PSQL.
		Select(
			"tr.instance_id",
			"tr.floating",
			"tr.start_date",
			"tr.end_date",
			"tr.fbtype",
			"t.transparent",
		).
		From(database.TimeRangesTable+" tr").
		LeftJoin(database.TransparencyTable+" t on tr.instance_id = t.time_range_instance_id and t.user_id = ?", userID).
		Where(sq.Eq{"tr.calendar_object_resource_id": objectID}).
		Where(sq.Or{
			sq.And{sq.Eq{"tr.floating": false}, sq.Lt{"tr.start_date": rng.End}, sq.Gt{"tr.end_date": rng.Start}},
			sq.And{sq.Eq{"tr.floating": true}, sq.Lt{"tr.start_date": floatRng.End}, sq.Gt{"tr.end_date": floatRng.Start}},
		}).
		OrderBy("tr.start_date")

	var dtos []*instanceDTO
	if err := q.Select(ctx, &dtos, qb); err != nil {
		return nil, fmt.Errorf("SQL request: %w", err)
	}

	res := make([]model.Instance, len(dtos))
	for i, d := range dtos {
		res[i] = mapToInstance(d)
	}

	return res, nil
}

// SetInstanceTransparency records a per-user override for one expanded
// instance without touching the object itself.
func (*Repository) SetInstanceTransparency(ctx context.Context, q database.Queryable, userID, instanceID int64, transparent bool) error {
	qb := database.PSQL.
		Insert(database.TransparencyTable).
		Columns("time_range_instance_id", "user_id", "transparent").
		Values(instanceID, userID, transparent).
		Suffix("on conflict (time_range_instance_id, user_id) do update set transparent = excluded.transparent")

	if _, err := q.Exec(ctx, qb); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return model.ErrNoRecord
		}
		return fmt.Errorf("SQL request: %w", err)
	}

	return nil
}
