package user

import (
	"github.com/calagora/freebusy-backend/internal/database"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

var baseQuery = database.PSQL.
	Select(
		"id",
		"full_name",
		"email",
	).
	From(database.UsersTable)
