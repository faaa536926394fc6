package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/handlers"
	"github.com/Ramsey-B/fern/pkg/auth"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/detection"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/identification"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/narrative"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/registry"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	var otlp *exporters.OTLPConfig
	if cfg.OTLPEnabled {
		otlp = &exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
		}
	}
	shutdownTracing, err := tracing.Setup(ctx, cfg.AppName, otlp, logger)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	app := &application{cfg: cfg, logger: logger}
	boot := app.dependencies(true)
	if err := boot.Start(ctx); err != nil {
		return err
	}

	server := app.server()
	app.checker.SetReady(true)

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("fern listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("http server stopped")
		}
	}

	app.checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shut down http server")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to stop dependencies")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to flush traces")
	}
	return nil
}

type application struct {
	cfg    *config.Config
	logger ectologger.Logger

	db        *database.DatabaseInstance
	redis     *redis.Client
	publisher *kafka.SightingPublisher
	checker   *health.Checker
}

// dependencies registers everything that must be up before the server
// accepts traffic. Without withBrokers only the database is started.
func (a *application) dependencies(withBrokers bool) *startup.Startup {
	cfg := a.cfg
	boot := startup.NewStartup(a.logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&startup.Dependency{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			db, err := database.Connect(ctx, database.ConnectionConfig{
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				User:            cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, a.logger)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		StopFunc: func(_ context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})

	boot.AddDependency(&startup.Dependency{
		Name:     "migrations",
		Requires: []string{"database"},
		StartFunc: func(_ context.Context) error {
			migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(max(cfg.DatabaseMigrationVersion, 0)),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return migrations.MigratePostgres(a.db, cfg.DatabaseName)
		},
	})

	if !withBrokers {
		return boot
	}

	if cfg.RedisEnabled {
		boot.AddDependency(&startup.Dependency{
			Name: "redis",
			StartFunc: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, a.logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			StopFunc: func(_ context.Context) error {
				if a.redis == nil {
					return nil
				}
				return a.redis.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		boot.AddDependency(&startup.Dependency{
			Name: "kafka",
			StartFunc: func(_ context.Context) error {
				a.publisher = kafka.NewSightingPublisher(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaSightingTopic), a.logger)
				return nil
			},
			StopFunc: func(_ context.Context) error {
				if a.publisher == nil {
					return nil
				}
				return a.publisher.Close()
			},
		})
	}

	return boot
}

// server builds the echo app once dependencies are started.
func (a *application) server() *http.Server {
	cfg := a.cfg
	logger := a.logger

	users := repositories.NewUserRepository(a.db, logger)
	sightings := repositories.NewSightingRepository(a.db, logger)

	// keep the interface nil when kafka is off
	var publisher identification.EventPublisher
	if a.publisher != nil {
		publisher = a.publisher
	}

	pipeline := newPipeline(cfg, logger, sightings, publisher)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire)
	var denylist *auth.Denylist
	var authOpts []middleware.AuthenticatorOption
	if a.redis != nil {
		denylist = auth.NewDenylist(a.redis)
		authOpts = append(authOpts, middleware.WithDenylist(denylist))
	}
	if cfg.AuthIssuerURL != "" {
		verifier, err := auth.NewOIDCVerifier(context.Background(), cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			logger.WithError(err).Warnf("OIDC issuer %s unavailable, only local tokens will be accepted", cfg.AuthIssuerURL)
		} else {
			authOpts = append(authOpts, middleware.WithOIDC(verifier, users))
		}
	}
	authenticator := middleware.NewAuthenticator(tokens, logger, authOpts...)

	a.checker = health.NewChecker(version)
	a.checker.Register("database", func(ctx context.Context) error {
		return a.db.PingContext(ctx)
	})
	if a.redis != nil {
		a.checker.RegisterOptional("redis", a.redis.Ping)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	a.checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	requireAuth := authenticator.Required()

	handlers.NewAuthHandler(users, tokens, denylist, logger).RegisterRoutes(e.Group("/auth"), requireAuth)

	api := e.Group("/api", authenticator.Optional())
	handlers.NewScanHandler(pipeline, cfg.ScanMaxImageBytes, logger).RegisterRoutes(api)
	handlers.NewSightingHandler(sightings, users, publisher, logger).RegisterRoutes(api, requireAuth)
	handlers.NewMeHandler(users, sightings).RegisterRoutes(api, requireAuth)
	handlers.NewLeaderboardHandler(sightings).RegisterRoutes(api)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// newPipeline builds the identification pipeline. store and publisher may be nil.
func newPipeline(cfg *config.Config, logger ectologger.Logger, store identification.SightingStore, publisher identification.EventPublisher) *identification.Pipeline {
	evaluator := expressions.NewEvaluator()
	return identification.NewPipeline(identification.Dependencies{
		Classifier: classifier.NewClassifier(classifier.Config{
			URL:        cfg.ClassifierURL,
			LabelsPath: cfg.ClassifierLabelsPath,
			Output:     classifier.Output(cfg.ClassifierOutput),
			Timeout:    cfg.ClassifierTimeout,
		}, logger),
		Detector: detection.NewClient(detection.Config{
			URL:     cfg.AnimalDetectURL,
			APIKey:  cfg.AnimalDetectAPIKey,
			Timeout: cfg.DetectorTimeout,
		}, evaluator, logger),
		Registry: registry.NewClient(registry.Config{
			URL:     cfg.IUCNURL,
			APIKey:  cfg.IUCNAPIKey,
			Timeout: cfg.RegistryTimeout,
		}, evaluator, logger),
		Narrator: narrative.NewClient(narrative.Config{
			URL:       cfg.OpenAIURL,
			APIKey:    cfg.NarrativeAPIKey(),
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.OpenAIMaxTokens,
			Timeout:   cfg.NarrativeTimeout,
		}, logger),
		Store:     store,
		Publisher: publisher,
	}, logger)
}
