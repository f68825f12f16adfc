package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/organizer/config"
	"github.com/Ramsey-B/organizer/db"
	"github.com/Ramsey-B/organizer/internal/handlers"
	"github.com/Ramsey-B/organizer/internal/materializer"
	"github.com/Ramsey-B/organizer/internal/pdf"
	"github.com/Ramsey-B/organizer/internal/services/audit"
	"github.com/Ramsey-B/organizer/internal/services/submission"
	"github.com/Ramsey-B/organizer/internal/services/tracker"
	"github.com/Ramsey-B/organizer/pkg/crm"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/health"
	"github.com/Ramsey-B/organizer/pkg/httpclient"
	"github.com/Ramsey-B/organizer/pkg/kafka"
	"github.com/Ramsey-B/organizer/pkg/middleware"
	"github.com/Ramsey-B/organizer/pkg/redis"
	"github.com/Ramsey-B/organizer/pkg/repositories"
	"github.com/Ramsey-B/organizer/pkg/startup"
	"github.com/Ramsey-B/organizer/pkg/tracing"
	"github.com/Ramsey-B/organizer/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("organizer stopped with an error")
		os.Exit(1)
	}
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// app carries what the startup dependencies build for each other.
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	checker *health.Checker

	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	server   *echo.Echo

	container ectocontainer.DIContainer
}

func run(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:           cfg.AppName,
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{Enabled: false},
	})
	if err != nil {
		return fmt.Errorf("failed to create dependency container: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		checker:   health.NewChecker(version),
		container: container,
	}

	s := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	s.AddDependency(a.tracingDependency())
	s.AddDependency(&startup.Dependency{Name: "postgres", StartFn: a.startPostgres, StopFn: a.stopPostgres})

	services := []string{"postgres"}
	if cfg.RedisEnabled() {
		s.AddDependency(&startup.Dependency{Name: "redis", StartFn: a.startRedis, StopFn: a.stopRedis})
		services = append(services, "redis")
	}
	if cfg.KafkaEnabled() {
		s.AddDependency(&startup.Dependency{Name: "kafka-producer", StartFn: a.startProducer, StopFn: a.stopProducer})
		services = append(services, "kafka-producer")
	}
	s.AddDependency(&startup.Dependency{Name: "services", Requires: services, StartFn: a.startServices})
	if cfg.KafkaEnabled() && cfg.CRMEnabled() {
		s.AddDependency(&startup.Dependency{Name: "crm-sync", Requires: []string{"services"}, StartFn: a.startCRMSync, StopFn: a.stopCRMSync})
	}
	s.AddDependency(&startup.Dependency{Name: "http", Requires: []string{"tracing", "services"}, StartFn: a.startHTTP, StopFn: a.stopHTTP})

	if err := s.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = s.Stop(stopCtx)
		return err
	}
	a.checker.SetReady(true)
	logger.WithField("version", version).Infof("%s is ready on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("shutting down")
	a.checker.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

func (a *app) tracingDependency() *startup.Dependency {
	var shutdown func(context.Context) error
	return &startup.Dependency{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			otlp := exporters.DefaultOTLPConfig()
			otlp.Endpoint = a.cfg.OTLPEndpoint
			otlp.Protocol = a.cfg.OTLPProtocol
			otlp.Insecure = a.cfg.OTLPInsecure
			otlp.Headers = exporters.ParseHeaders(a.cfg.OTLPHeaders)

			var err error
			shutdown, err = tracing.Setup(ctx, tracing.ProviderConfig{
				ServiceName: a.cfg.AppName,
				Enabled:     a.cfg.OTLPEnabled,
				OTLP:        otlp,
			}, a.logger)
			return err
		},
		StopFn: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	}
}

func (a *app) startPostgres(ctx context.Context) error {
	conn, err := sqlx.ConnectContext(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	conn.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
	conn.SetMaxIdleConns(a.cfg.DatabaseMaxIdleConns)
	conn.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{DatabaseName: a.cfg.DatabaseName})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open migration driver: %w", err)
	}

	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		Files:        db.Migrations,
		Path:         db.MigrationsPath,
		Version:      uint(a.cfg.DatabaseMigrationVersion),
		Force:        a.cfg.DatabaseMigrationForce,
		AutoRollback: a.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(a.cfg.DatabaseName, driver); err != nil {
		_ = conn.Close()
		return err
	}

	a.db = database.NewDatabaseInstance(conn, a.logger)
	a.checker.AddCheck("postgres", health.DatabaseCheck(conn), true)
	return nil
}

func (a *app) stopPostgres(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) startRedis(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     a.cfg.RedisHost,
		Port:     a.cfg.RedisPort,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}, a.logger)
	if err != nil {
		return err
	}
	a.redis = client
	a.checker.AddCheck("redis", health.RedisCheck(client.Redis()), false)
	return nil
}

func (a *app) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *app) startProducer(context.Context) error {
	a.producer = kafka.NewProducer(kafka.DefaultProducerConfig(a.cfg.Brokers(), a.cfg.KafkaSubmissionTopic), a.logger)
	return nil
}

func (a *app) stopProducer(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) startServices(context.Context) error {
	cipher, err := encryption.NewFernetCipher(a.cfg.EncryptionKey)
	if err != nil {
		return err
	}

	sections := repositories.NewSectionRepository(a.db, a.logger)
	sectionData := repositories.NewSectionDataRepository(a.db, a.logger)
	answers := repositories.NewAnswerRepository(a.db, a.logger)
	structured := repositories.NewStructuredRepository(a.db, a.logger)

	cfg := submission.Config{
		Transactor:  database.NewTransactor(a.db),
		FormTypes:   repositories.NewFormTypeRepository(a.db, a.logger),
		Sections:    sections,
		Submissions: repositories.NewSubmissionRepository(a.db, a.logger),
		SectionData: sectionData,
		Answers:     answers,
		Structured:  structured,
		Materializer: materializer.New(materializer.Config{
			Sections:    sections,
			Questions:   repositories.NewQuestionRepository(a.db, a.logger),
			SectionData: sectionData,
			Answers:     answers,
			Structured:  structured,
			Cipher:      cipher,
			Logger:      a.logger,
		}),
		Recorder: audit.NewRecorder(repositories.NewAuditRepository(a.db, a.logger), a.logger),
		Cipher:   cipher,
		Logger:   a.logger,
	}
	if a.redis != nil {
		cfg.Locker = redis.NewLocker(a.redis, "", a.cfg.LockTTL, a.cfg.LockTimeout)
	}

	var trackerEvents tracker.EventPublisher
	if a.producer != nil {
		cfg.Events = a.producer
		trackerEvents = a.producer
	}

	return errors.Join(
		ectoinject.RegisterInstance[ectologger.Logger](a.container, a.logger),
		ectoinject.RegisterInstance[*pdf.Renderer](a.container, pdf.NewRenderer()),
		ectoinject.RegisterInstance[*submission.Service](a.container, submission.New(cfg)),
		ectoinject.RegisterInstance[*tracker.Service](a.container, tracker.NewService(repositories.NewTrackerRepository(a.db, a.logger), trackerEvents, a.logger)),
	)
}

func (a *app) startCRMSync(ctx context.Context) error {
	submissions, err := ectoinject.GetFromContainer[*submission.Service](a.container.GetContainerID())
	if err != nil {
		return err
	}
	renderer, err := ectoinject.GetFromContainer[*pdf.Renderer](a.container.GetContainerID())
	if err != nil {
		return err
	}

	client := crm.NewHTTPClient(httpclient.NewClient(httpclient.DefaultConfig(), a.logger), crm.HTTPConfig{
		BaseURL:    a.cfg.CRMBaseURL,
		APIToken:   a.cfg.CRMAPIToken,
		APIVersion: a.cfg.CRMAPIVersion,
		LocationID: a.cfg.CRMLocationID,
	})

	syncCfg := crm.SyncerConfig{
		Client:          client,
		Documents:       pdf.NewDocuments(submissions, renderer),
		DocumentFieldID: a.cfg.CRMDocumentFieldID,
		FrontendBaseURL: a.cfg.FrontendBaseURL,
		LinkFieldIDs:    a.cfg.LinkFieldIDs(),
		Logger:          a.logger,
	}
	if a.redis != nil {
		syncCfg.Cache = redis.NewContactCache(a.redis, a.cfg.CRMContactCacheTTL)
		if a.cfg.CRMRateLimit > 0 {
			client.WithLimiter(redis.NewRateLimiter(a.redis, "", int64(a.cfg.CRMRateLimit), a.cfg.CRMRateWindow))
		}
	}
	syncer := crm.NewSyncer(syncCfg)

	consumer, err := kafka.NewConsumer(kafka.DefaultConsumerConfig(a.cfg.Brokers(), a.cfg.KafkaSubmissionTopic, a.cfg.KafkaConsumerGroup), a.logger)
	if err != nil {
		return err
	}
	if err := consumer.Start(ctx, syncer.Handle); err != nil {
		return err
	}
	a.consumer = consumer
	return nil
}

func (a *app) stopCRMSync(context.Context) error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Stop()
}

func (a *app) startHTTP(context.Context) error {
	e, err := a.newServer()
	if err != nil {
		return err
	}
	a.server = e

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", a.cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("http server stopped unexpectedly")
		}
	}()
	return nil
}

func (a *app) stopHTTP(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *app) newServer() (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = a.cfg.MaxHeaderBytes

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))
	e.Use(echomw.BodyLimit(a.cfg.BodyLimit))
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context(!a.cfg.AuthEnabled))
	e.Use(middleware.Logger(a.logger))

	a.checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1", middleware.Container(a.container.GetContainerID()))
	if a.cfg.AuthEnabled {
		verifier, err := middleware.NewOIDCVerifier(context.Background(), middleware.AuthConfig{
			IssuerURL: a.cfg.AuthIssuerURL,
			ClientID:  a.cfg.AuthClientID,
			StaffRole: a.cfg.AuthStaffRole,
		})
		if err != nil {
			return nil, err
		}
		api.Use(middleware.Authentication(a.logger, verifier, a.cfg.AuthStaffRole))
	}

	handlers.NewSubmissionHandler().RegisterRoutes(api)
	handlers.NewTrackerHandler().RegisterRoutes(api)

	return e, nil
}
