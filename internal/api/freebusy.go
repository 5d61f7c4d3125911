package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calagora/freebusy-backend/internal/freebusy"
	"github.com/calagora/freebusy-backend/internal/model"
	"github.com/calagora/freebusy-backend/internal/pkg/validator"
)

var errCantRetrieveUser = errors.New("can't retrieve user from context")

func (a *Api) freeBusyHandler(w http.ResponseWriter, r *http.Request) {
	requester, ok := r.Context().Value(contextKeyUser).(*model.User)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveUser)
		return
	}

	target, err := a.directory.UserByAddress(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.notFoundResponse(w, r)
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("resolve user: %w", err))
		}
		return
	}

	req := &struct {
		Start        string `json:"start"`
		End          string `json:"end"`
		Timezone     string `json:"timezone"`
		Organizer    string `json:"organizer"`
		Attendee     string `json:"attendee"`
		EventDetails bool   `json:"event_details"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	var start, end time.Time

	v.Check(req.Start != "", "start", "start must be provided")
	if req.Start != "" {
		start, err = parseICalTime(req.Start)
		v.Check(err == nil, "start", "start must be a UTC timestamp like 20240301T000000Z")
	}

	v.Check(req.End != "", "end", "end must be provided")
	if req.End != "" {
		end, err = parseICalTime(req.End)
		v.Check(err == nil, "end", "end must be a UTC timestamp like 20240301T000000Z")
	}

	zone := time.UTC
	if req.Timezone != "" {
		zone, err = time.LoadLocation(req.Timezone)
		v.Check(err == nil, "timezone", fmt.Sprintf("unknown timezone %q", req.Timezone))
	}

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	rng, err := model.NewPeriod(start, end)
	if err != nil {
		a.failedValidationResponse(w, r, map[string]string{"end": "end must not be before start"})
		return
	}

	result, err := a.freebusyService.Generate(r.Context(), target, &freebusy.Request{
		UserID:           requester.ID,
		Requester:        requester.Email,
		Organizer:        req.Organizer,
		Attendee:         req.Attendee,
		Range:            rng,
		Zone:             zone,
		WithDetails:      req.EventDetails,
		SameCalendarUser: requester.ID == target.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTooManyMatches):
			a.forbiddenResponse(w, r, "too many instances match the requested range")
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("generate freebusy: %w", err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.Data))
}

func (a *Api) setTransparencyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	req := &struct {
		InstanceID  int64 `json:"instance_id"`
		Transparent bool  `json:"transparent"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(req.InstanceID > 0, "instance_id", "instance id must be provided")

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	if err := a.calendars.SetInstanceTransparency(r.Context(), a.db, userID, req.InstanceID, req.Transparent); err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.notFoundResponse(w, r)
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("set transparency: %w", err))
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
