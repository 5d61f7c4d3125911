package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calagora/freebusy-backend/internal/config"
	"github.com/calagora/freebusy-backend/internal/ical"
	"github.com/calagora/freebusy-backend/internal/model"
)

const maxObjectBytes = 1_048_576

func (a *Api) putObjectHandler(w http.ResponseWriter, r *http.Request) {
	calendar, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	name := chi.URLParam(r, "object")

	r.Body = http.MaxBytesReader(w, r.Body, maxObjectBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		a.badRequestResponse(w, r, fmt.Errorf("read body: %w", err))
		return
	}

	info, err := ical.ParseObject(data)
	if err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	horizon := time.Now().UTC().Add(config.ExpansionHorizon())

	// Non-recurring objects keep their single span even past the horizon;
	// only recurrence expansion is windowed.
	rng := model.Period{Start: info.Start, End: horizon}
	if info.RRule == "" && info.End.After(rng.End) {
		rng.End = info.End
	}

	spans, err := ical.Instances(info, rng, 0)
	if err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	object := &model.ObjectCreate{
		CalendarID: calendar.ID,
		Name:       name,
		UID:        info.UID,
		Component:  info.Component,
		Summary:    info.Summary,
		Organizer:  info.Organizer,
		Attendees:  info.Attendees,
		Status:     info.Status,
		RRule:      info.RRule,
		Floating:   info.Floating,
		From:       info.Start,
		To:         info.End,
		Data:       string(data),
	}

	tx, err := a.db.BeginTx(r.Context(), nil)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("tx begin: %w", err))
		return
	}
	defer tx.Rollback(r.Context())

	stored, err := a.calendars.PutObject(r.Context(), tx, object, horizon)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			a.conflictResponse(w, r, "object with this uid already exists in the calendar")
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("put object: %w", err))
		}
		return
	}

	if err := a.calendars.ReplaceSpans(r.Context(), tx, calendar.ID, stored.ID, info.Status, spans); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("replace spans: %w", err))
		return
	}

	if err := a.calendars.TouchCTag(r.Context(), tx, calendar.ID); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("touch ctag: %w", err))
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("tx commit: %w", err))
		return
	}

	resp := &objectResp{
		Href:    objectHref(calendar.Name, stored.Name),
		UID:     stored.UID,
		ETag:    stored.ETag,
		Summary: stored.Summary,
	}
	headers := http.Header{"Etag": []string{`"` + stored.ETag + `"`}}

	if err := a.writeJSON(w, http.StatusOK, resp, headers); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) getObjectHandler(w http.ResponseWriter, r *http.Request) {
	calendar, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	object, err := a.calendars.GetObject(r.Context(), a.db, calendar.ID, chi.URLParam(r, "object"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.notFoundResponse(w, r)
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("get object: %w", err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Etag", `"`+object.ETag+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(object.Data))
}

func (a *Api) deleteObjectHandler(w http.ResponseWriter, r *http.Request) {
	calendar, ok := r.Context().Value(contextKeyCalendar).(*model.Calendar)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveCalendar)
		return
	}

	tx, err := a.db.BeginTx(r.Context(), nil)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("tx begin: %w", err))
		return
	}
	defer tx.Rollback(r.Context())

	if err := a.calendars.DeleteObject(r.Context(), tx, calendar.ID, chi.URLParam(r, "object")); err != nil {
		switch {
		case errors.Is(err, model.ErrNoRecord):
			a.notFoundResponse(w, r)
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("delete object: %w", err))
		}
		return
	}

	if err := a.calendars.TouchCTag(r.Context(), tx, calendar.ID); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("touch ctag: %w", err))
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("tx commit: %w", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
