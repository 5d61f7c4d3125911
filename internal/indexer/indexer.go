package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xlab/closer"
	"go.uber.org/zap"

	"github.com/calagora/freebusy-backend/internal/config"
	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/ical"
	"github.com/calagora/freebusy-backend/internal/model"
)

const staleBatchSize = 100

// Indexer keeps pre-expanded spans of recurring objects reaching the
// expansion horizon. Objects fall behind as time moves the horizon forward;
// each run re-expands them in batches.
type Indexer struct {
	db                  database.PGX
	logger              *zap.SugaredLogger
	calendarsRepository calendarsRepository
}

type calendarsRepository interface {
	StaleObjects(ctx context.Context, q database.Queryable, horizon time.Time, limit uint64) ([]*model.CalendarObject, error)
	ReplaceSpans(ctx context.Context, q database.Queryable, calendarID, objectID int64, status model.BusyStatus, spans []model.Period) error
	SetExpandedUntil(ctx context.Context, q database.Queryable, objectID int64, until time.Time) error
}

func NewIndexer(db database.PGX, logger *zap.SugaredLogger, repo calendarsRepository) *Indexer {
	return &Indexer{
		db:                  db,
		logger:              logger,
		calendarsRepository: repo,
	}
}

// Start schedules reindex runs and binds the scheduler to shutdown. The
// schedule comes from REINDEX_CRON.
func (i *Indexer) Start(ctx context.Context) error {
	c := cron.New()

	if _, err := c.AddFunc(config.ReindexSchedule(), func() {
		if err := i.Reindex(ctx); err != nil {
			i.logger.Errorw("Reindex run failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", config.ReindexSchedule(), err)
	}

	c.Start()
	closer.Bind(func() {
		<-c.Stop().Done()
	})

	return nil
}

// Reindex re-expands every object whose spans stop short of the horizon.
func (i *Indexer) Reindex(ctx context.Context) error {
	horizon := time.Now().UTC().Add(config.ExpansionHorizon())

	for {
		objects, err := i.calendarsRepository.StaleObjects(ctx, i.db, horizon, staleBatchSize)
		if err != nil {
			return fmt.Errorf("calendarsRepository.StaleObjects: %w", err)
		}
		if len(objects) == 0 {
			return nil
		}

		for _, object := range objects {
			if err := i.reindexObject(ctx, object, horizon); err != nil {
				return fmt.Errorf("reindex object %v: %w", object.ID, err)
			}
		}

		if len(objects) < staleBatchSize {
			return nil
		}
	}
}

func (i *Indexer) reindexObject(ctx context.Context, object *model.CalendarObject, horizon time.Time) error {
	info, err := ical.ParseObject([]byte(object.Data))
	if err != nil {
		// Stored data that no longer parses is skipped, not retried forever.
		i.logger.Warnw("Skipping unparseable object", "id", object.ID, "err", err)
		return i.calendarsRepository.SetExpandedUntil(ctx, i.db, object.ID, horizon)
	}

	spans, err := ical.Instances(info, model.Period{Start: info.Start, End: horizon}, 0)
	if err != nil {
		i.logger.Warnw("Skipping object with bad recurrence", "id", object.ID, "err", err)
		return i.calendarsRepository.SetExpandedUntil(ctx, i.db, object.ID, horizon)
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := i.calendarsRepository.ReplaceSpans(ctx, tx, object.CalendarID, object.ID, info.Status, spans); err != nil {
		return fmt.Errorf("calendarsRepository.ReplaceSpans: %w", err)
	}

	if err := i.calendarsRepository.SetExpandedUntil(ctx, tx, object.ID, horizon); err != nil {
		return fmt.Errorf("calendarsRepository.SetExpandedUntil: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}

	return nil
}
