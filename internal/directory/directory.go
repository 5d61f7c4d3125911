package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/model"
)

const mailtoPrefix = "mailto:"

// NormalizeAddress maps a calendar address to its canonical form: the
// mailto scheme stripped and the rest lowercased. Scheduling properties
// carry addresses in whatever casing the client sent.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if len(address) >= len(mailtoPrefix) && strings.EqualFold(address[:len(mailtoPrefix)], mailtoPrefix) {
		address = address[len(mailtoPrefix):]
	}

	return strings.ToLower(address)
}

// Directory resolves calendar addresses to users, with a cache in front of
// the database. Cache failures degrade to a direct lookup.
type Directory struct {
	db              database.PGX
	usersRepository usersRepository
	cache           addressCache
	logger          *zap.SugaredLogger
}

type usersRepository interface {
	GetUserByEmail(ctx context.Context, q database.Queryable, email string) (*model.User, error)
}

type addressCache interface {
	Get(ctx context.Context, address string) (*model.User, error)
	Set(ctx context.Context, address string, user *model.User) error
	Reset(ctx context.Context) error
}

func NewDirectory(db database.PGX, users usersRepository, cache addressCache, logger *zap.SugaredLogger) *Directory {
	return &Directory{
		db:              db,
		usersRepository: users,
		cache:           cache,
		logger:          logger,
	}
}

func (d *Directory) UserByAddress(ctx context.Context, address string) (*model.User, error) {
	normalized := NormalizeAddress(address)

	user, err := d.cache.Get(ctx, normalized)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNoRecord) {
		d.logger.Warnw("Address cache lookup failed", "address", normalized, "err", err)
	}

	user, err = d.usersRepository.GetUserByEmail(ctx, d.db, normalized)
	if err != nil {
		return nil, fmt.Errorf("usersRepository.GetUserByEmail: %w", err)
	}

	if err := d.cache.Set(ctx, normalized, user); err != nil {
		d.logger.Warnw("Address cache store failed", "address", normalized, "err", err)
	}

	return user, nil
}

// Invalidate drops every cached address mapping. Run it after the user set
// changes so an address never resolves to an outdated record.
func (d *Directory) Invalidate(ctx context.Context) error {
	if err := d.cache.Reset(ctx); err != nil {
		return fmt.Errorf("addressCache.Reset: %w", err)
	}

	return nil
}
