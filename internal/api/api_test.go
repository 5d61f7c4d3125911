package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/freebusy"
	"github.com/calagora/freebusy-backend/internal/model"
	"github.com/calagora/freebusy-backend/internal/pkg/jwt"
)

type fakeUserRepo struct {
	users     map[int64]*model.User
	created   []*model.UserCreate
	createErr error
	nextID    int64
}

func (f *fakeUserRepo) CreateUser(_ context.Context, _ database.Queryable, user *model.UserCreate) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}

	f.created = append(f.created, user)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, _ database.Queryable, id int64) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, model.ErrNoRecord
	}
	return user, nil
}

func (f *fakeUserRepo) SearchUsers(_ context.Context, _ database.Queryable, _ model.UserSearchFilter) ([]*model.User, error) {
	res := make([]*model.User, 0, len(f.users))
	for _, user := range f.users {
		res = append(res, user)
	}
	return res, nil
}

type fakeCalendars struct {
	calendars map[string]*model.Calendar
	objects   map[string]*model.CalendarObject

	matching   []*model.CalendarObject
	clause     string
	clauseArgs []interface{}
	listCalls  int

	transparencyErr  error
	transparencySet  bool
	transparencyUser int64
	transparencyID   int64
	transparent      bool

	createdCalendars []*model.CalendarCreate
	deletedCalendars []int64
}

func (f *fakeCalendars) CreateCalendar(_ context.Context, _ database.Queryable, info *model.CalendarCreate) (int64, error) {
	f.createdCalendars = append(f.createdCalendars, info)
	return int64(100 + len(f.createdCalendars)), nil
}

func (f *fakeCalendars) GetCalendar(_ context.Context, _ database.Queryable, ownerID int64, name string) (*model.Calendar, error) {
	calendar, ok := f.calendars[name]
	if !ok || calendar.OwnerID != ownerID {
		return nil, model.ErrNoRecord
	}
	return calendar, nil
}

func (f *fakeCalendars) DeleteCalendar(_ context.Context, _ database.Queryable, id int64) error {
	f.deletedCalendars = append(f.deletedCalendars, id)
	return nil
}

func (f *fakeCalendars) TouchCTag(_ context.Context, _ database.Queryable, _ int64) error {
	return nil
}

func (f *fakeCalendars) PutObject(_ context.Context, _ database.Queryable, object *model.ObjectCreate, expandedUntil time.Time) (*model.CalendarObject, error) {
	return &model.CalendarObject{ID: 1, ETag: "etag", ExpandedUntil: expandedUntil, ObjectCreate: *object}, nil
}

func (f *fakeCalendars) GetObject(_ context.Context, _ database.Queryable, _ int64, name string) (*model.CalendarObject, error) {
	object, ok := f.objects[name]
	if !ok {
		return nil, model.ErrNoRecord
	}
	return object, nil
}

func (f *fakeCalendars) ListObjects(_ context.Context, _ database.Queryable, _ int64) ([]*model.CalendarObject, error) {
	f.listCalls++
	return f.matching, nil
}

func (f *fakeCalendars) DeleteObject(_ context.Context, _ database.Queryable, _ int64, _ string) error {
	return nil
}

func (f *fakeCalendars) ReplaceSpans(_ context.Context, _ database.Queryable, _, _ int64, _ model.BusyStatus, _ []model.Period) error {
	return nil
}

func (f *fakeCalendars) MatchingObjects(_ context.Context, _ database.Queryable, clause string, args []interface{}) ([]*model.CalendarObject, error) {
	f.clause = clause
	f.clauseArgs = args
	return f.matching, nil
}

func (f *fakeCalendars) SetInstanceTransparency(_ context.Context, _ database.Queryable, userID, instanceID int64, transparent bool) error {
	if f.transparencyErr != nil {
		return f.transparencyErr
	}

	f.transparencySet = true
	f.transparencyUser = userID
	f.transparencyID = instanceID
	f.transparent = transparent
	return nil
}

type fakeFreeBusyService struct {
	gotTarget *model.User
	gotReq    *freebusy.Request
	result    *freebusy.Result
	err       error
}

func (f *fakeFreeBusyService) Generate(_ context.Context, target *model.User, req *freebusy.Request) (*freebusy.Result, error) {
	f.gotTarget = target
	f.gotReq = req

	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeDirectory struct {
	users map[string]*model.User

	invalidations int
}

func (f *fakeDirectory) UserByAddress(_ context.Context, address string) (*model.User, error) {
	user, ok := f.users[address]
	if !ok {
		return nil, model.ErrNoRecord
	}
	return user, nil
}

func (f *fakeDirectory) Invalidate(_ context.Context) error {
	f.invalidations++
	return nil
}

type apiFakes struct {
	users     *fakeUserRepo
	calendars *fakeCalendars
	freebusy  *fakeFreeBusyService
	directory *fakeDirectory
}

func newTestApi(t *testing.T) (*Api, *apiFakes) {
	t.Helper()

	requester := &model.User{ID: 1, UserCreate: model.UserCreate{FullName: "Requesting User", Email: "requester@example.com"}}
	target := &model.User{ID: 2, UserCreate: model.UserCreate{FullName: "Target User", Email: "target@example.com"}}

	fakes := &apiFakes{
		users: &fakeUserRepo{
			users:  map[int64]*model.User{1: requester, 2: target},
			nextID: 2,
		},
		calendars: &fakeCalendars{
			calendars: map[string]*model.Calendar{
				"work": {ID: 5, CTag: "ctag-1", CalendarCreate: model.CalendarCreate{OwnerID: 1, Name: "work", FreeBusyVisible: true}},
			},
			objects: map[string]*model.CalendarObject{},
		},
		freebusy: &fakeFreeBusyService{
			result: &freebusy.Result{Data: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", Matches: 1},
		},
		directory: &fakeDirectory{
			users: map[string]*model.User{
				"target@example.com":    target,
				"requester@example.com": requester,
			},
		},
	}

	a, err := NewApi(zap.NewNop().Sugar(), jwt.NewManger(), nil, fakes.users, fakes.calendars, fakes.freebusy, fakes.directory)
	require.NoError(t, err)

	return a, fakes
}

func bearerFor(t *testing.T, id int64) string {
	t.Helper()

	token, err := jwt.NewManger().CreateToken(id)
	require.NoError(t, err)

	return "Bearer " + token
}

func doRequest(t *testing.T, a *Api, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	resp := &struct {
		Error map[string]string `json:"error"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))

	return resp.Error
}

func TestHealthcheck(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodGet, "/healthcheck", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodGet, "/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, a, http.MethodGet, "/user", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthUnknownUser(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodGet, "/user", bearerFor(t, 99), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetUser(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodGet, "/user", bearerFor(t, 1), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	resp := &userResp{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "requester@example.com", resp.Email)
}

func TestCreateUser(t *testing.T) {
	a, fakes := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/users", bearerFor(t, 1), map[string]string{
		"full_name": "New User",
		"email":     "New@Example.com",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	resp := &userResp{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, "new@example.com", resp.Email)

	require.Len(t, fakes.users.created, 1)
	assert.Equal(t, "new@example.com", fakes.users.created[0].Email)
	assert.Equal(t, 1, fakes.directory.invalidations)
}

func TestCreateUserValidation(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/users", bearerFor(t, 1), map[string]string{
		"full_name": "",
		"email":     "not-an-email",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "full_name")
	assert.Contains(t, errs, "email")
}

func TestCreateUserConflict(t *testing.T) {
	a, fakes := newTestApi(t)
	fakes.users.createErr = model.ErrAlreadyExists

	rec := doRequest(t, a, http.MethodPost, "/users", bearerFor(t, 1), map[string]string{
		"full_name": "New User",
		"email":     "requester@example.com",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCalendar(t *testing.T) {
	a, fakes := newTestApi(t)

	rec := doRequest(t, a, http.MethodPut, "/calendars/personal", bearerFor(t, 1), nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, fakes.calendars.createdCalendars, 1)
	created := fakes.calendars.createdCalendars[0]
	assert.Equal(t, int64(1), created.OwnerID)
	assert.Equal(t, "personal", created.Name)
	assert.True(t, created.FreeBusyVisible)
}

func TestCreateCalendarHidden(t *testing.T) {
	a, fakes := newTestApi(t)

	hidden := false
	rec := doRequest(t, a, http.MethodPut, "/calendars/private", bearerFor(t, 1), map[string]*bool{
		"free_busy_visible": &hidden,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, fakes.calendars.createdCalendars, 1)
	assert.False(t, fakes.calendars.createdCalendars[0].FreeBusyVisible)
}

func TestGetCalendar(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodGet, "/calendars/work", bearerFor(t, 1), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	resp := &struct {
		ID              int64  `json:"id"`
		Name            string `json:"name"`
		CTag            string `json:"ctag"`
		FreeBusyVisible bool   `json:"free_busy_visible"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, int64(5), resp.ID)
	assert.Equal(t, "work", resp.Name)
	assert.Equal(t, "ctag-1", resp.CTag)
	assert.True(t, resp.FreeBusyVisible)
}

func TestDeleteCalendar(t *testing.T) {
	a, fakes := newTestApi(t)

	rec := doRequest(t, a, http.MethodDelete, "/calendars/work", bearerFor(t, 1), nil)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{5}, fakes.calendars.deletedCalendars)
}

func TestDeleteCalendarUnknown(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodDelete, "/calendars/missing", bearerFor(t, 1), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryCalendar(t *testing.T) {
	a, fakes := newTestApi(t)
	fakes.calendars.matching = []*model.CalendarObject{
		{ID: 10, ETag: "abc", ObjectCreate: model.ObjectCreate{Name: "standup.ics", UID: "uid-1", Summary: "Standup"}},
	}

	rec := doRequest(t, a, http.MethodPost, "/calendars/work/query", bearerFor(t, 1), map[string]string{
		"op":    "equals",
		"field": "summary",
		"value": "Standup",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []*objectResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "/calendars/work/objects/standup.ics", resp[0].Href)
	assert.Equal(t, "uid-1", resp[0].UID)

	assert.Contains(t, fakes.calendars.clause, "calendar_object.summary = :1")
	assert.Equal(t, int64(5), fakes.calendars.clauseArgs[len(fakes.calendars.clauseArgs)-1])
}

func TestQueryCalendarMatchAll(t *testing.T) {
	a, fakes := newTestApi(t)
	fakes.calendars.matching = []*model.CalendarObject{
		{ID: 10, ETag: "abc", ObjectCreate: model.ObjectCreate{Name: "standup.ics", UID: "uid-1"}},
	}

	rec := doRequest(t, a, http.MethodPost, "/calendars/work/query", bearerFor(t, 1), map[string]string{
		"op": "all",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fakes.calendars.listCalls)
	assert.Empty(t, fakes.calendars.clause)
}

func TestQueryCalendarBadFilter(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/calendars/work/query", bearerFor(t, 1), map[string]string{
		"op": "between",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "filter.op")
}

func TestQueryCalendarUnknown(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/calendars/missing/query", bearerFor(t, 1), map[string]string{
		"op": "all",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryCalendarOtherUsers(t *testing.T) {
	a, _ := newTestApi(t)

	// The calendar exists but belongs to user 1.
	rec := doRequest(t, a, http.MethodPost, "/calendars/work/query", bearerFor(t, 2), map[string]string{
		"op": "all",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetObject(t *testing.T) {
	a, fakes := newTestApi(t)
	fakes.calendars.objects["standup.ics"] = &model.CalendarObject{
		ID:   10,
		ETag: "abc",
		ObjectCreate: model.ObjectCreate{
			Name: "standup.ics",
			UID:  "uid-1",
			Data: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
		},
	}

	rec := doRequest(t, a, http.MethodGet, "/calendars/work/objects/standup.ics", bearerFor(t, 1), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `"abc"`, rec.Header().Get("Etag"))
	assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", rec.Body.String())
}

func TestGetObjectMissing(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodGet, "/calendars/work/objects/missing.ics", bearerFor(t, 1), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFreeBusy(t *testing.T) {
	a, fakes := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/freebusy/target@example.com", bearerFor(t, 1), map[string]interface{}{
		"start":     "20240301T000000Z",
		"end":       "20240302T000000Z",
		"organizer": "mailto:requester@example.com",
		"attendee":  "mailto:target@example.com",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", rec.Body.String())

	req := fakes.freebusy.gotReq
	require.NotNil(t, req)
	assert.Equal(t, int64(1), req.UserID)
	assert.Equal(t, "requester@example.com", req.Requester)
	assert.Equal(t, "mailto:requester@example.com", req.Organizer)
	assert.Equal(t, "mailto:target@example.com", req.Attendee)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), req.Range.Start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), req.Range.End)
	assert.Equal(t, time.UTC, req.Zone)
	assert.False(t, req.SameCalendarUser)

	require.NotNil(t, fakes.freebusy.gotTarget)
	assert.Equal(t, int64(2), fakes.freebusy.gotTarget.ID)
}

func TestFreeBusySameUser(t *testing.T) {
	a, fakes := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/freebusy/requester@example.com", bearerFor(t, 1), map[string]interface{}{
		"start": "20240301T000000Z",
		"end":   "20240302T000000Z",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fakes.freebusy.gotReq)
	assert.True(t, fakes.freebusy.gotReq.SameCalendarUser)
}

func TestFreeBusyUnknownAddress(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/freebusy/nobody@example.com", bearerFor(t, 1), map[string]interface{}{
		"start": "20240301T000000Z",
		"end":   "20240302T000000Z",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFreeBusyValidation(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/freebusy/target@example.com", bearerFor(t, 1), map[string]interface{}{
		"start":    "2024-03-01",
		"timezone": "Mars/Olympus",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "start")
	assert.Contains(t, errs, "end")
	assert.Contains(t, errs, "timezone")
}

func TestFreeBusyReversedRange(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPost, "/freebusy/target@example.com", bearerFor(t, 1), map[string]interface{}{
		"start": "20240302T000000Z",
		"end":   "20240301T000000Z",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "end")
}

func TestFreeBusyTooManyMatches(t *testing.T) {
	a, fakes := newTestApi(t)
	fakes.freebusy.err = model.ErrTooManyMatches

	rec := doRequest(t, a, http.MethodPost, "/freebusy/target@example.com", bearerFor(t, 1), map[string]interface{}{
		"start": "20240301T000000Z",
		"end":   "20240302T000000Z",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetTransparency(t *testing.T) {
	a, fakes := newTestApi(t)

	rec := doRequest(t, a, http.MethodPut, "/transparency", bearerFor(t, 1), map[string]interface{}{
		"instance_id": 42,
		"transparent": true,
	})

	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.True(t, fakes.calendars.transparencySet)
	assert.Equal(t, int64(1), fakes.calendars.transparencyUser)
	assert.Equal(t, int64(42), fakes.calendars.transparencyID)
	assert.True(t, fakes.calendars.transparent)
}

func TestSetTransparencyValidation(t *testing.T) {
	a, _ := newTestApi(t)

	rec := doRequest(t, a, http.MethodPut, "/transparency", bearerFor(t, 1), map[string]interface{}{
		"transparent": true,
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "instance_id")
}

func TestSetTransparencyUnknownInstance(t *testing.T) {
	a, fakes := newTestApi(t)
	fakes.calendars.transparencyErr = model.ErrNoRecord

	rec := doRequest(t, a, http.MethodPut, "/transparency", bearerFor(t, 1), map[string]interface{}{
		"instance_id": 42,
		"transparent": true,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
