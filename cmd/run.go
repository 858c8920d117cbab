package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tumulte/application"
	"tumulte/config"
	"tumulte/database"
	"tumulte/domain/actions"
	"tumulte/domain/preflight"
	"tumulte/domain/services"
	"tumulte/domain/triggers"
	"tumulte/infrastructure"
	"tumulte/infrastructure/foundry"
	"tumulte/infrastructure/observability"
	"tumulte/infrastructure/rediscache"
	"tumulte/infrastructure/twitch"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ConfigureLogging applies the configured level and format to logrus
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// Run initializes and starts the engine, blocking until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting tumulte...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), database.PoolOptions{
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	log.WithField("servers", cfg.NATSServerList()).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsClient.Close()

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureDomainEventStream(natsClient, mapper); err != nil {
		return fmt.Errorf("failed to ensure domain event stream: %w", err)
	}
	publisher := infrastructure.NewNATSEventPublisher(natsClient, mapper, metrics)
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)

	redisClient, err := rediscache.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	twitchClient := twitch.NewClient(twitch.Options{
		ClientID:            cfg.TwitchClientID,
		ClientSecret:        cfg.TwitchClientSecret,
		APIBaseURL:          cfg.TwitchAPIBaseURL,
		AuthBaseURL:         cfg.TwitchAuthBaseURL,
		EventSubCallbackURL: cfg.TwitchEventSubCallbackURL,
		EventSubSecret:      cfg.TwitchEventSubSecret,
		HTTPClient:          &http.Client{Timeout: cfg.TwitchRequestTimeout},
	}, rediscache.NewTokenStore(redisClient))

	hub := foundry.NewHub(cfg.VTTCommandTimeout)
	hub.OnEvent(application.NewModuleEventForwarder(natsClient).Forward)
	vtt := foundry.NewCommandService(hub)

	actionRegistry := actions.NewDefaultRegistry()
	actionRegistry.WireFoundry(vtt)

	instances := services.NewInstanceManager(
		uowFactory,
		services.NewViewerObjectiveCalculator(),
		services.NewAudienceService(uowFactory, twitchClient),
		rediscache.NewCooldownCache(redisClient),
		metrics,
	)
	gamification := services.NewGamificationService(
		uowFactory,
		services.NewTriggerEvaluator(triggers.NewDefaultRegistry(), metrics),
		instances,
		services.NewActionExecutor(actionRegistry, application.NewTwitchChatNotifier(uowFactory, twitchClient), metrics),
		twitchClient,
	)
	rewards := services.NewRewardManagerService(uowFactory, twitchClient, metrics)
	reconciler := services.NewEventSubReconciler(uowFactory, twitchClient)

	checks := preflight.NewRegistry()
	checks.Register(preflight.NewRedisCheck(redisClient))
	checks.Register(preflight.NewWebSocketCheck(hub))
	checks.Register(preflight.NewTokenValidityCheck(twitchClient))
	checks.Register(preflight.NewTwitchChatCheck(twitchClient))
	checks.Register(preflight.NewGamificationConfigCheck(uowFactory))
	runner := preflight.NewRunner(checks, uowFactory, actionRegistry)

	consumer := infrastructure.NewMessageConsumer(natsClient, metrics)
	application.RegisterMessageHandlers(
		consumer,
		application.NewDiceRollHandler(gamification),
		application.NewRedemptionHandler(gamification),
		application.NewTriggerHandler(gamification, gamification),
		application.NewRewardHandler(rewards),
	)

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: application.NewHTTPHandler(application.HTTPDeps{
			HealthChecks: map[string]application.HealthCheck{
				"database": db.Ping,
				"redis":    redisClient.Ping,
				"nats": func(context.Context) error {
					if !natsClient.IsConnected() {
						return errors.New("not connected")
					}
					return nil
				},
			},
			VTTHandler: hub.Handler(),
			PreFlight:  runner,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	stops := []func(){
		application.NewExpiryWorker(instances, cfg.ExpireSweepInterval).Start(gctx),
		application.NewArmedExecutionWorker(uowFactory, gamification, cfg.ArmedSweepInterval).Start(gctx),
		application.NewOrphanRetryWorker(services.NewOrphanDetector(uowFactory), rewards, cfg.OrphanSweepInterval).Start(gctx),
		application.NewEventSubReconcileWorker(reconciler, cfg.EventSubReconcileInterval).Start(gctx),
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	g.Go(func() error {
		return consumer.Start(gctx)
	})
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info("Tumulte is running")
	err = g.Wait()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if mErr := observability.ShutdownGlobalMetrics(shutdownCtx); mErr != nil {
		log.WithError(mErr).Warn("Failed to flush metrics")
	}

	return err
}
