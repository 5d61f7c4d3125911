package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/freebusy"
	"github.com/calagora/freebusy-backend/internal/model"
)

type Api struct {
	handler http.Handler
	logger  *zap.SugaredLogger

	jwts jwtManager

	db        database.PGX
	users     userRepository
	calendars calendarRepository

	freebusyService freebusyService
	directory       userDirectory
}

type jwtManager interface {
	CreateToken(id int64) (string, error)
	GetIdFromToken(token string) (int64, error)
}

type userRepository interface {
	CreateUser(ctx context.Context, q database.Queryable, user *model.UserCreate) (int64, error)
	GetUserByID(ctx context.Context, q database.Queryable, id int64) (*model.User, error)
	SearchUsers(ctx context.Context, q database.Queryable, filter model.UserSearchFilter) ([]*model.User, error)
}

type calendarRepository interface {
	CreateCalendar(ctx context.Context, q database.Queryable, info *model.CalendarCreate) (int64, error)
	GetCalendar(ctx context.Context, q database.Queryable, ownerID int64, name string) (*model.Calendar, error)
	DeleteCalendar(ctx context.Context, q database.Queryable, id int64) error
	TouchCTag(ctx context.Context, q database.Queryable, id int64) error

	PutObject(ctx context.Context, q database.Queryable, object *model.ObjectCreate, expandedUntil time.Time) (*model.CalendarObject, error)
	GetObject(ctx context.Context, q database.Queryable, calendarID int64, name string) (*model.CalendarObject, error)
	ListObjects(ctx context.Context, q database.Queryable, calendarID int64) ([]*model.CalendarObject, error)
	DeleteObject(ctx context.Context, q database.Queryable, calendarID int64, name string) error

	ReplaceSpans(ctx context.Context, q database.Queryable, calendarID, objectID int64, status model.BusyStatus, spans []model.Period) error
	MatchingObjects(ctx context.Context, q database.Queryable, clause string, args []interface{}) ([]*model.CalendarObject, error)
	SetInstanceTransparency(ctx context.Context, q database.Queryable, userID, instanceID int64, transparent bool) error
}

type freebusyService interface {
	Generate(ctx context.Context, target *model.User, req *freebusy.Request) (*freebusy.Result, error)
}

type userDirectory interface {
	UserByAddress(ctx context.Context, address string) (*model.User, error)
	Invalidate(ctx context.Context) error
}

func NewApi(
	logger *zap.SugaredLogger,
	jwts jwtManager,
	db database.PGX,
	users userRepository,
	calendars calendarRepository,
	freebusyService freebusyService,
	directory userDirectory,
) (*Api, error) {
	a := &Api{
		logger:          logger,
		jwts:            jwts,
		db:              db,
		users:           users,
		calendars:       calendars,
		freebusyService: freebusyService,
		directory:       directory,
	}
	a.setupHandler()

	return a, nil
}

func (a *Api) setupHandler() {
	middleware.DefaultLogger = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.logger.Debugw(r.URL.RequestURI(),
				"addr", r.RemoteAddr,
				"protocol", r.Proto,
				"method", r.Method,
			)
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewMux()

	r.Use(middleware.Logger, middleware.Recoverer, middleware.StripSlashes)
	r.NotFound(a.notFoundResponse)
	r.MethodNotAllowed(a.methodNotAllowedResponse)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.With(a.auth).Route("/", func(r chi.Router) {
		r.Post("/users", a.createUserHandler)
		r.Get("/users", a.searchUsersHandler)

		r.With(a.userCtx).Group(func(r chi.Router) {
			r.Get("/user", a.getUserHandler)

			r.Route("/calendars/{calendar}", func(r chi.Router) {
				r.Put("/", a.createCalendarHandler)

				r.With(a.calendarCtx).Group(func(r chi.Router) {
					r.Get("/", a.getCalendarHandler)
					r.Delete("/", a.deleteCalendarHandler)
					r.Post("/query", a.queryCalendarHandler)
					r.Route("/objects/{object}", func(r chi.Router) {
						r.Put("/", a.putObjectHandler)
						r.Get("/", a.getObjectHandler)
						r.Delete("/", a.deleteObjectHandler)
					})
				})
			})

			r.Post("/freebusy/{user}", a.freeBusyHandler)
			r.Put("/transparency", a.setTransparencyHandler)
		})
	})

	a.handler = r
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}
