package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelfinder/internal/app/commands"
	"hostelfinder/internal/app/guard"
	hostelapp "hostelfinder/internal/app/handlers/hostels"
	"hostelfinder/internal/app/middleware"
	appoutbox "hostelfinder/internal/app/outbox"
	"hostelfinder/internal/app/policies"
	"hostelfinder/internal/app/queries"
	authsvc "hostelfinder/internal/app/services/auth"
	"hostelfinder/internal/app/uow"
	domainauth "hostelfinder/internal/domain/auth"
	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
	"hostelfinder/internal/infra/broker/kafka"
	rediscache "hostelfinder/internal/infra/cache/redis"
	"hostelfinder/internal/infra/config"
	mongodb "hostelfinder/internal/infra/db/mongo"
	ginserver "hostelfinder/internal/infra/http/gin"
	"hostelfinder/internal/infra/obs"
	infraoutbox "hostelfinder/internal/infra/outbox"
	"hostelfinder/internal/infra/security"
	"hostelfinder/internal/infra/storage/memory"
	"hostelfinder/internal/infra/storage/s3"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code once deferred cleanup has finished.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("invalid configuration", "error", err)
		return 1
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if app != nil {
		defer app.close(logger)
	}
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return 1
	}

	if err := app.bootstrap(ctx, cfg, logger); err != nil {
		logger.Error("bootstrap failed", "error", err)
		return 1
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks:  app.checks,
		Timeout: 2 * time.Second,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "redis", cfg.UsesRedis(), "kafka", cfg.UsesKafka(), "s3", cfg.UsesS3())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		return 1
	}
	logger.Info("HTTP server stopped")
	return 0
}

type application struct {
	handlers ginserver.Handlers
	checks   map[string]obs.Check
	auth     *authsvc.Service
	factory  uow.UoWFactory
	worker   *infraoutbox.Worker
	closers  []func(ctx context.Context) error
}

type storage struct {
	factory  uow.UoWFactory
	users    domainuser.Repository
	profiles domainprofile.Repository
	outbox   interface {
		appoutbox.Outbox
		infraoutbox.Store
	}
}

// buildApplication returns the partially built application alongside any error
// so that resources opened so far are still closed.
func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}

	store, err := app.openStorage(ctx, cfg, logger)
	if err != nil {
		return app, err
	}
	app.factory = store.factory

	sessions, events, err := app.openSessions(ctx, cfg, logger)
	if err != nil {
		return app, err
	}

	images, err := app.openImages(cfg, logger)
	if err != nil {
		return app, err
	}

	producer, err := app.openProducer(cfg, logger)
	if err != nil {
		return app, err
	}
	app.worker = &infraoutbox.Worker{
		Store:       store.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "hostelfinder",
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	tokens, err := tokenGenerator(cfg)
	if err != nil {
		return app, err
	}
	app.auth = &authsvc.Service{
		Users:      store.users,
		Profiles:   store.profiles,
		Sessions:   sessions,
		Events:     events,
		Passwords:  security.BcryptHasher{},
		Tokens:     tokens,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	hostelapp.Register(commandBus, queryBus, hostelapp.Writer{
		UoWFactory: store.factory,
		Images:     images,
		Outbox:     store.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Logger:     logger,
	}, logger)

	authorizer := guard.AdminAuthorizer{Profiles: store.profiles}
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(),
		middleware.Authorization(authorizer),
		middleware.Transaction(store.factory, nil),
		middleware.OutboxFlush(store.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus, middleware.QueryAuthorization(authorizer))

	userGuard := &guard.Guard{Sessions: app.auth, Profiles: store.profiles, Logger: logger}
	adminGuard := &guard.Guard{Sessions: app.auth, Profiles: store.profiles, Admin: true, Logger: logger}

	app.handlers = ginserver.Handlers{
		Pages: ginserver.PagesHandler{Guard: userGuard},
		Auth: ginserver.AuthHandler{
			Service:      app.auth,
			Logger:       logger,
			SecureCookie: cfg.CookieSecure,
		},
		Session: ginserver.SessionHandler{User: userGuard, Admin: adminGuard},
		Hostels: ginserver.HostelHandler{Queries: queryBusWithMiddleware, Logger: logger},
		AdminHostels: ginserver.AdminHostelHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Service: app.auth, Logger: logger}.Handle,
		UserGuard:      ginserver.GuardFactory(userGuard),
		AdminGuard:     ginserver.GuardFactory(adminGuard),
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	if !cfg.UsesMongo() {
		profiles := memory.NewProfileRepository()
		logger.Info("using in-memory storage")
		return storage{
			factory: memory.Factory{
				HostelsRepo:   memory.NewHostelRepository(),
				RoomTypesRepo: memory.NewRoomTypeRepository(),
				ProfilesRepo:  profiles,
			},
			users:    memory.NewUserRepository(),
			profiles: profiles,
			outbox:   memory.NewOutbox(),
		}, nil
	}

	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, err
	}
	a.closers = append(a.closers, client.Close)
	if err := client.EnsureIndexes(ctx); err != nil {
		return storage{}, err
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	a.checks["mongo"] = client.Ping

	profiles := mongodb.NewProfileRepository(client.DB)
	logger.Info("using mongo storage", "database", cfg.MongoDB)
	return storage{
		factory: mongodb.Factory{
			DB:            client.DB,
			HostelsRepo:   mongodb.NewHostelRepository(client.DB),
			RoomTypesRepo: mongodb.NewRoomTypeRepository(client.DB),
			ProfilesRepo:  profiles,
		},
		users:    mongodb.NewUserRepository(client.DB),
		profiles: profiles,
		outbox:   box,
	}, nil
}

func (a *application) openSessions(ctx context.Context, cfg config.Config, logger *slog.Logger) (domainauth.SessionStore, domainauth.SessionEvents, error) {
	if !cfg.UsesRedis() {
		broker := memory.NewSessionBroker()
		broker.Logger = logger
		a.closers = append(a.closers, func(context.Context) error { return broker.Close() })
		return memory.NewSessionStore(), broker, nil
	}
	client, err := rediscache.NewClient(ctx, rediscache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return &rediscache.SessionStore{Client: client}, &rediscache.SessionBroker{
		Client:  client,
		Channel: cfg.RedisChannel,
		Logger:  logger,
	}, nil
}

func (a *application) openImages(cfg config.Config, logger *slog.Logger) (policies.ImageStore, error) {
	if !cfg.UsesS3() {
		logger.Warn("S3_ENDPOINT not set, image uploads are disabled")
		return s3.Unconfigured{}, nil
	}
	store, err := s3.NewImageStore(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.checks["s3"] = store.Ping
	return store, nil
}

func (a *application) openProducer(cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, error) {
	if !cfg.UsesKafka() {
		return infraoutbox.LogProducer{Logger: logger}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, "hostelfinder")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
	return producer, nil
}

func tokenGenerator(cfg config.Config) (authsvc.TokenGenerator, error) {
	if cfg.TokenMode != config.TokensJWT {
		return security.RandomTokenGenerator{}, nil
	}
	return security.JWTGenerator{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.SessionTTL,
	}, nil
}

// bootstrap promotes the configured admin account and imports fixtures.
func (a *application) bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.AdminEmail != "" {
		user, err := a.auth.EnsureAdmin(ctx, authsvc.AdminAccount{
			Email:    cfg.AdminEmail,
			Name:     cfg.AdminName,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			return err
		}
		logger.Info("admin account ready", "user_id", user.ID, "email", user.Email)
	}
	if cfg.HostelFixtures != "" {
		if err := loadHostelFixtures(ctx, a.factory, cfg.HostelFixtures, logger); err != nil {
			logger.Warn("hostel fixtures load failed", "error", err, "path", cfg.HostelFixtures)
		}
	}
	return nil
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("resource close failed", "error", err)
		}
	}
}
