package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/calagora/freebusy-backend/internal/model"
	"github.com/calagora/freebusy-backend/internal/pkg/validator"
)

func (a *Api) createUserHandler(w http.ResponseWriter, r *http.Request) {
	req := &struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	v.Check(len(req.FullName) != 0, "full_name", "full name must be provided")
	v.Check(validator.Matches(req.Email, validator.EmailRX), "email", "email must be valid")

	if !v.Valid() {
		a.failedValidationResponse(w, r, v.Errors)
		return
	}

	info := &model.UserCreate{
		FullName: req.FullName,
		Email:    strings.ToLower(req.Email),
	}

	id, err := a.users.CreateUser(r.Context(), a.db, info)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			a.conflictResponse(w, r, "user with this email already exists")
		default:
			a.serverErrorResponse(w, r, fmt.Errorf("create user: %w", err))
		}
		return
	}

	// The address may have been looked up while it did not resolve yet, or
	// belonged to a record removed out of band.
	if err := a.directory.Invalidate(r.Context()); err != nil {
		a.logger.Warnw("Directory cache invalidation failed", "err", err)
	}

	resp, _ := mapToUserResp(&model.User{ID: id, UserCreate: *info})

	if err := a.writeJSON(w, http.StatusCreated, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) searchUsersHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseUsersQuery(r)
	if err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	users, err := a.users.SearchUsers(r.Context(), a.db, *filter)
	if err != nil {
		a.serverErrorResponse(w, r, fmt.Errorf("search users: %w", err))
		return
	}

	resp, _ := mapSlice(users, mapToUserResp)

	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func parseUsersQuery(r *http.Request) (*model.UserSearchFilter, error) {
	res := &model.UserSearchFilter{
		Query: r.URL.Query().Get("query"),
		Page:  1,
		Limit: 20,
	}

	var err error

	if v := r.URL.Query().Get("page"); v != "" {
		res.Page, err = strconv.Atoi(v)
		if err != nil || res.Page < 1 {
			return nil, fmt.Errorf("invalid page %v", v)
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		res.Limit, err = strconv.Atoi(v)
		if err != nil || res.Limit < 1 || res.Limit > 100 {
			return nil, fmt.Errorf("invalid limit %v", v)
		}
	}

	return res, nil
}

func (a *Api) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(contextKeyUser).(*model.User)
	if !ok {
		a.serverErrorResponse(w, r, errCantRetrieveUser)
		return
	}

	resp, _ := mapToUserResp(user)

	if err := a.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
