package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type config struct {
	Production         bool          `env:"PRODUCTION" envDefault:"false"`
	Port               string        `env:"PORT" envDefault:"80"`
	PostgresUrl        string        `env:"POSTGRES_URL" envDefault:""`
	RedisUrl           string        `env:"REDIS_URL" envDefault:"redis:6379"`
	JwtTTL             time.Duration `env:"TOKEN_TTL" envDefault:"20m"`
	Secret             string        `env:"SECRET" envDefault:""`
	ExpansionHorizon   time.Duration `env:"EXPANSION_HORIZON" envDefault:"8760h"`
	ReindexSchedule    string        `env:"REINDEX_CRON" envDefault:"@daily"`
	DirectoryCacheTTL  time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"30m"`
	MaxFreeBusyMatches int           `env:"MAX_FREEBUSY_MATCHES" envDefault:"1000"`
}

var conf config

func init() {
	if err := env.Parse(&conf); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}

func Production() bool {
	return conf.Production
}

func Port() string {
	return conf.Port
}

func PostgresURL() string {
	return conf.PostgresUrl
}

func RedisURL() string {
	return conf.RedisUrl
}

func JwtTTL() time.Duration {
	return conf.JwtTTL
}

func Secret() string {
	return conf.Secret
}

// ExpansionHorizon bounds how far ahead recurring objects are expanded
// into time spans.
func ExpansionHorizon() time.Duration {
	return conf.ExpansionHorizon
}

// ReindexSchedule is the cron expression for re-expanding stale objects.
func ReindexSchedule() string {
	return conf.ReindexSchedule
}

func DirectoryCacheTTL() time.Duration {
	return conf.DirectoryCacheTTL
}

// MaxFreeBusyMatches caps the instances one free/busy request may touch.
// Zero disables the cap.
func MaxFreeBusyMatches() int {
	return conf.MaxFreeBusyMatches
}
