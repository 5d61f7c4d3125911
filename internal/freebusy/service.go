package freebusy

import (
	"context"
	"fmt"
	"time"

	"github.com/calagora/freebusy-backend/internal/config"
	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/directory"
	"github.com/calagora/freebusy-backend/internal/model"
	"github.com/calagora/freebusy-backend/internal/query"
)

type Service struct {
	db                  database.PGX
	calendarsRepository calendarsRepository

	// maxMatches caps the instances one aggregation may touch. Zero means
	// unlimited.
	maxMatches int
}

type calendarsRepository interface {
	ListFreeBusyCalendars(ctx context.Context, q database.Queryable, ownerID int64) ([]*model.Calendar, error)
	MatchingObjects(ctx context.Context, q database.Queryable, clause string, args []interface{}) ([]*model.CalendarObject, error)
	InstancesInRange(ctx context.Context, q database.Queryable, objectID, userID int64, rng, floatRng model.Period) ([]model.Instance, error)
}

func NewService(db database.PGX, repo calendarsRepository) *Service {
	return &Service{
		db:                  db,
		calendarsRepository: repo,
		maxMatches:          config.MaxFreeBusyMatches(),
	}
}

// Request carries one free/busy lookup. It owns the ranges and disclosure
// decisions for this requester; nothing here is shared between requests.
type Request struct {
	// UserID is the requesting user, whose transparency overrides apply.
	UserID int64
	// Requester is the requesting user's calendar address, matched against
	// organizer and attendees when disclosing details.
	Requester string

	// Organizer and Attendee are echoed into the result when set.
	Organizer string
	Attendee  string

	Range model.Period
	Zone  *time.Location

	WithDetails bool
	// SameCalendarUser marks the requester looking at their own data, which
	// discloses every matched instance.
	SameCalendarUser bool
}

type Result struct {
	Data    string
	Matches int
}

// Generate aggregates the target user's visible calendars into one
// free/busy document.
func (s *Service) Generate(ctx context.Context, target *model.User, req *Request) (*Result, error) {
	calendars, err := s.calendarsRepository.ListFreeBusyCalendars(ctx, s.db, target.ID)
	if err != nil {
		return nil, fmt.Errorf("calendarsRepository.ListFreeBusyCalendars: %w", err)
	}

	fbinfo := &model.FBInfo{}
	matchTotal := 0

	for _, cal := range calendars {
		matchTotal, err = s.AggregateCalendar(ctx, cal, req, fbinfo, matchTotal)
		if err != nil {
			return nil, fmt.Errorf("aggregate calendar %q: %w", cal.Name, err)
		}

		if s.maxMatches > 0 && matchTotal > s.maxMatches {
			return nil, model.ErrTooManyMatches
		}
	}

	return &Result{
		Data:    BuildResult(fbinfo, req.Range, req.Organizer, req.Attendee, fbinfo.Details),
		Matches: matchTotal,
	}, nil
}

// AggregateCalendar folds one calendar's overlapping instances into fbinfo
// and returns the updated match count. Free instances, transparent ones
// included, take no time and are skipped entirely. Any storage error aborts
// the request, a partial result is never returned.
func (s *Service) AggregateCalendar(ctx context.Context, cal *model.Calendar, req *Request, fbinfo *model.FBInfo, matchTotal int) (int, error) {
	zone := req.Zone
	if zone == nil {
		zone = time.UTC
	}

	expr := query.And(
		query.Is(query.FieldType, "VEVENT"),
		query.TimeRange(req.Range.Start, req.Range.End, zone),
	)

	clause, args, err := query.Compile(expr, cal.ID, req.UserID, true)
	if err != nil {
		return matchTotal, fmt.Errorf("compile freebusy query: %w", err)
	}

	objects, err := s.calendarsRepository.MatchingObjects(ctx, s.db, clause, args)
	if err != nil {
		return matchTotal, fmt.Errorf("calendarsRepository.MatchingObjects: %w", err)
	}

	floatRng := req.Range.InZone(zone)

	for _, object := range objects {
		instances, err := s.calendarsRepository.InstancesInRange(ctx, s.db, object.ID, req.UserID, req.Range, floatRng)
		if err != nil {
			return matchTotal, fmt.Errorf("calendarsRepository.InstancesInRange: %w", err)
		}

		disclose := req.WithDetails && canDisclose(req, object)

		for _, instance := range instances {
			if instance.Status == model.StatusFree {
				continue
			}

			period := instance.Period
			if period.Floating {
				period = resolveFloating(period, zone)
			}

			matchTotal++

			switch instance.Status {
			case model.StatusBusy:
				fbinfo.Busy = append(fbinfo.Busy, period)
			case model.StatusTentative:
				fbinfo.Tentative = append(fbinfo.Tentative, period)
			case model.StatusUnavailable:
				fbinfo.Unavailable = append(fbinfo.Unavailable, period)
			}

			if disclose {
				fbinfo.Details = append(fbinfo.Details, model.EventDetail{Start: period.Start, End: period.End})
			}
		}
	}

	return matchTotal, nil
}

// canDisclose reports whether the requester may see event details for this
// object: their own data, or an event they organize or attend.
func canDisclose(req *Request, object *model.CalendarObject) bool {
	if req.SameCalendarUser {
		return true
	}
	if req.Requester == "" {
		return false
	}

	requester := directory.NormalizeAddress(req.Requester)
	if directory.NormalizeAddress(object.Organizer) == requester {
		return true
	}
	for _, attendee := range object.Attendees {
		if directory.NormalizeAddress(attendee) == requester {
			return true
		}
	}

	return false
}

// resolveFloating reinterprets a floating period's wall clock in the
// viewer's zone, yielding fixed UTC bounds.
func resolveFloating(p model.Period, loc *time.Location) model.Period {
	return model.Period{
		Start: unstamp(p.Start, loc),
		End:   unstamp(p.End, loc),
	}
}

func unstamp(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).UTC()
}
