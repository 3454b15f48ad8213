package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	redisClient    *redis.Client
	storage        EbookStorage
	cleanups       []func()
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App configured from the given files.
func NewApp(configFile, envFile string) (_ AppProvider, err error) {
	config, err := LoadAndInitConfigs(configFile, envFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and Setup the logging module.
	err = os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))
	cleanups := []func(){
		func() {
			if ferr := flusher(); ferr != nil {
				fmt.Println("error during flushing of logs: ", ferr)
			}
		},
		func() {
			if cerr := logWriter.Close(); cerr != nil {
				fmt.Println("error during closing of log file: ", cerr)
			}
		},
	}

	app := &App{logger: logger, config: config}
	idsHandler := NewIDsHandler()

	// release what was opened so far when the setup aborts.
	defer func() {
		if err == nil {
			return
		}
		logger.Error("api server setup aborted", zap.Error(err))
		if app.redisClient != nil {
			if cerr := app.redisClient.Close(); cerr != nil {
				logger.Error("failed to close redis client", zap.Error(cerr))
			}
		}
		for _, f := range cleanups {
			f()
		}
	}()

	// Setup the connection to redis and boltDB servers when required.
	if config.NeedsRedis() {
		app.redisClient, err = GetRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
	}

	var boltStorage *boltEbookStorage
	if config.NeedsBoltDB() {
		boltDBClient, berr := GetBoltDBClient(config)
		if berr != nil {
			return nil, fmt.Errorf("failed to connect to boltDB server: %s", berr)
		}
		boltStorage = NewBoltEbookStorage(logger, &config.BoltDB, boltDBClient, idsHandler)
	}

	switch config.Storage.Backend {
	case RedisBackend:
		app.storage = NewRedisEbookStorage(logger, app.redisClient, idsHandler)
	case BoltBackend:
		app.storage = boltStorage
	default:
		app.storage = NewMemoryEbookStorage(logger, idsHandler)
	}

	var queue Queuer
	if config.Mirror.Enable {
		queue = NewRedisQueue(app.redisClient)
		mirrorConsumer := NewBoltDBConsumer(logger, queue, boltStorage)
		app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
			return mirrorConsumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
		})
		cleanups = append([]func(){func() {
			if cerr := boltStorage.Close(); cerr != nil {
				logger.Error("failed to close boltdb mirror", zap.Error(cerr))
			}
		}}, cleanups...)
	}

	ebookService := NewEbookService(logger, app.storage, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		idsHandler,
		ebookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:           routerWithTimeout,
		ReadTimeout:       config.Server.ReadTimeout,
		ReadHeaderTimeout: config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
		MaxHeaderBytes:    1 << 20, // Max headers size : 1MB
	}
	app.cleanups = cleanups

	logger.Info("api server configured",
		zap.String("storage.backend", config.Storage.Backend),
		zap.Bool("mirror.enabled", config.Mirror.Enable),
		zap.Bool("ops.enabled", config.Ops.Enable),
	)
	return app, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}

		if cerr := app.storage.Close(); cerr != nil {
			app.logger.Error("failed to close ebook storage", zap.Error(cerr))
		}
		if app.redisClient != nil {
			if cerr := app.redisClient.Close(); cerr != nil {
				app.logger.Error("failed to close redis client", zap.Error(cerr))
			}
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
