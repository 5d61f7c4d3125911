package database

import sq "github.com/Masterminds/squirrel"

// PSQL конструктор запросов с postgres плейсхолдерами.
var PSQL = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	UsersTable        = "users"
	CalendarsTable    = "calendar"
	ObjectsTable      = "calendar_object"
	TimeRangesTable   = "time_range"
	TransparencyTable = "transparency"
)
