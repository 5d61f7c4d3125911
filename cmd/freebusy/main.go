package main

import (
	"context"
	"log"
	"net/http"

	"github.com/calagora/freebusy-backend/internal/api"
	"github.com/calagora/freebusy-backend/internal/config"
	"github.com/calagora/freebusy-backend/internal/database"
	"github.com/calagora/freebusy-backend/internal/database/calendar"
	"github.com/calagora/freebusy-backend/internal/database/user"
	"github.com/calagora/freebusy-backend/internal/directory"
	"github.com/calagora/freebusy-backend/internal/freebusy"
	"github.com/calagora/freebusy-backend/internal/indexer"
	"github.com/calagora/freebusy-backend/internal/pkg/jwt"
	"github.com/calagora/freebusy-backend/internal/redis"
	"github.com/xlab/closer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx := context.Background()

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("unable to initializae logger: %v", err)
	}

	if config.PostgresURL() == "" {
		logger.Fatalw("POSTGRES_URL must be set")
	}
	if config.Production() && config.Secret() == "" {
		logger.Fatalw("SECRET must be set in production")
	}

	jwts := jwt.NewManger()

	redisPool := redis.NewRedisPool(logger)
	addressCache := redis.NewAddressCache(redisPool, logger)

	db, err := database.NewPGX(ctx)
	if err != nil {
		log.Fatalf("unable to initializae db: %v", err)
	}
	usersRepository := user.NewRepository()
	calendarsRepository := calendar.NewRepository()

	freebusyService := freebusy.NewService(db, calendarsRepository)
	userDirectory := directory.NewDirectory(db, usersRepository, addressCache, logger)

	reindexer := indexer.NewIndexer(db, logger, calendarsRepository)
	if err := reindexer.Start(ctx); err != nil {
		log.Fatalf("unable to initializae indexer: %v", err)
	}

	api, err := api.NewApi(
		logger,
		jwts,
		db,
		usersRepository,
		calendarsRepository,
		freebusyService,
		userDirectory,
	)
	if err != nil {
		log.Fatalf("unable to initializae api: %v", err)
	}

	errLogger, err := zap.NewStdLogAt(logger.Desugar(), zap.ErrorLevel)
	if err != nil {
		logger.Fatalw("error initiating server logger", "err", err)
	}

	server := &http.Server{
		Addr:     ":" + config.Port(),
		Handler:  api,
		ErrorLog: errLogger,
	}

	logger.Infow("Started server", "port", config.Port())
	logger.Fatalw("server error", "err", server.ListenAndServe())
}

func initLogger() (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if config.Production() {
		logger, err = zap.NewProduction()
	} else {
		conf := zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = conf.Build()
	}

	if err != nil {
		return nil, err
	}

	closer.Bind(func() {
		_ = logger.Sync()
	})

	return logger.Sugar(), nil
}
