package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calagora/freebusy-backend/internal/model"
	"github.com/calagora/freebusy-backend/internal/pkg/validator"
	"github.com/calagora/freebusy-backend/internal/query"
)

var errCantRetrieveCalendar = errors.New("can't retrieve calendar from context")

func (a *Api) createCalendarHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	req := &struct {
		FreeBusyVisible *bool `json:"free_busy_visible"`
	}{}

	// The body is optional, collections default to freebusy visible.
	if r.ContentLength != 0 {
		if err := a.readJSON(w, r, req); err != nil {
			a.badRequestResponse(w, r, err)
			return
		}
	}

	name := chi.URLParam(r, "calendar")

	v := validator.New()

	v.Check(len(name) != 0, "calendar", "calendar name must be provided")
	v.Check(len(name) <= 255, "calendar", "calendar name must not be longer than 255 bytes")

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	freeBusyVisible := true
	if req.FreeBusyVisible != nil {
		freeBusyVisible = *req.FreeBusyVisible
	}

	id, err := a.calendars.CreateCalendar(r.Context(), a.db, &model.CalendarCreate{
		OwnerID:         userID,
		Name:            name,
		FreeBusyVisible: freeBusyVisible,
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			a.conflictResponse(w, r, "calendar already exists")
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("create calendar: %w", err))
		}
		return
	}

	resp := &struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}{
		ID:   id,
		Name: name,
	}

	if err := a.writeJSON(w, http.StatusCreated, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

// getCalendarHandler returns collection properties. Clients compare the
// ctag against their last seen value to detect any change inside.
func (a *Api) getCalendarHandler(w http.ResponseWriter, r *http.Request) {
	calendar, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	resp := &struct {
		ID              int64  `json:"id"`
		Name            string `json:"name"`
		CTag            string `json:"ctag"`
		FreeBusyVisible bool   `json:"free_busy_visible"`
	}{
		ID:              calendar.ID,
		Name:            calendar.Name,
		CTag:            calendar.CTag,
		FreeBusyVisible: calendar.FreeBusyVisible,
	}

	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

// deleteCalendarHandler drops the whole collection, its objects and spans
// cascade away with it.
func (a *Api) deleteCalendarHandler(w http.ResponseWriter, r *http.Request) {
	calendar, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	if err := a.calendars.DeleteCalendar(r.Context(), a.db, calendar.ID); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("delete calendar: %w", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) queryCalendarHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextKeyID).(int64)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveID)
		return
	}

	calendar, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	node := &filterNode{}
	if err := a.readJSON(w, r, node); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	expr := buildFilter(node, v, "filter")

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	var objects []*model.CalendarObject
	var err error

	// A match-all filter needs no scan, the whole collection is the answer.
	if query.MatchesAll(expr) {
		objects, err = a.calendars.ListObjects(r.Context(), a.db, calendar.ID)
		if err != nil {
			a.serverErrorResponse(w, r, fmt.Errorf("list objects: %w", err))
			return
		}
	} else {
		clause, args, err := query.Compile(expr, calendar.ID, userID, false)
		if err != nil {
			switch {
			case errors.Is(err, model.ErrInvalidQuery), errors.Is(err, model.ErrUnsupportedExpression):
				a.failedValidationResponse(w, r, map[string]string{"filter": err.Error()})
			default:
				a.serverErrorResponse(w, r, fmt.Errorf("compile filter: %w", err))
			}
			return
		}

		objects, err = a.calendars.MatchingObjects(r.Context(), a.db, clause, args)
		if err != nil {
			a.serverErrorResponse(w, r, fmt.Errorf("matching objects: %w", err))
			return
		}
	}

	resp, _ := mapSlice(objects, mapToObjectResp(calendar.Name))

	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
