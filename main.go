package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"onu-map/internal/api"
	"onu-map/internal/cache"
	"onu-map/internal/config"
	"onu-map/internal/database"
	"onu-map/internal/gate"
	"onu-map/internal/handler"
	"onu-map/internal/logger"
	"onu-map/internal/repository"
	"onu-map/internal/services"
	"onu-map/internal/smartolt"
	"onu-map/internal/supervisor"
	"onu-map/internal/telegram"
	"onu-map/internal/websocket"

	"github.com/gookit/event"
)

const (
	cacheCleanupInterval = time.Minute
	databaseTimeout      = 10 * time.Second
)

type Application struct {
	config       *config.Config
	logger       *logger.ZLogXAdapter
	db           database.DB
	store        cache.Store
	memoryStore  *cache.MemoryStore
	eventManager *event.Manager
	services     *Services
	handlers     *Handlers
	hub          *websocket.Hub
	server       *http.Server
}

type Services struct {
	Monitor    *services.MonitorService
	Subscriber *services.SubscriberService
}

type Handlers struct {
	Message *handler.MessageHandler
	Alert   *handler.AlertHandler
}

// main initializes and runs the ONU map service
func main() {
	app, err := NewApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// NewApplication creates a new application instance with all dependencies
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &Application{
		config:       cfg,
		logger:       logger,
		eventManager: event.NewManager("onu-map"),
	}

	if err := app.initializeCache(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := app.initializeDatabase(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeHandlers()
	app.initializeHTTP()

	return app, nil
}

// Run starts every service under supervision and blocks until a signal arrives
func (app *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tree := supervisor.NewTree(app.logger, supervisor.DefaultTreeConfig())

	tree.AddAPIService(supervisor.NewHTTPServerService(app.server, 10*time.Second))
	tree.AddAPIService(app.hub)

	if app.config.RefreshInterval > 0 {
		tree.AddWorker(supervisor.NewRefresherService(app.services.Monitor.Refresh, app.config.RefreshInterval, app.logger))
	}

	if app.memoryStore != nil {
		tree.AddWorker(supervisor.NewFuncService("cache-cleanup", func(ctx context.Context) error {
			app.memoryStore.RunCleanup(ctx, cacheCleanupInterval)
			return ctx.Err()
		}))
	}

	if app.config.Telegram.Enabled() {
		bot, err := telegram.NewTelegram(app.config.Telegram.BotToken, app.eventManager, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		tree.AddAPIService(bot)

		if app.handlers.Alert != nil {
			tree.AddWorker(supervisor.NewFuncService("alerts", app.handlers.Alert.Serve))
		}
	}

	app.logStartupMessages()

	err := tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		app.logger.WithField("services", len(report)).Warn("Some services did not stop in time")
	}

	app.logger.Info("Shutdown complete")
	return err
}

// Close performs cleanup operations
func (app *Application) Close() {
	if app.db != nil {
		app.db.Close()
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close cache store")
		}
	}
}

// logStartupMessages displays startup information
func (app *Application) logStartupMessages() {
	app.logger.WithFields(map[string]any{
		"listen":  app.config.HTTP.Listen,
		"cache":   app.config.Cache.Backend,
		"refresh": app.config.RefreshInterval.String(),
	}).Info("ONU map service started")

	if app.db != nil {
		app.logger.Info("ERP enrichment enabled")
	}
	if app.config.Telegram.Enabled() {
		app.logger.WithField("alerts", app.handlers.Alert != nil).Info("Telegram bot enabled")
	}
}

// initializeLogger creates and configures the application logger
func initializeLogger(cfg *config.Config) (*logger.ZLogXAdapter, error) {
	logConfig := &logger.Config{
		Level:          cfg.LogLevel,
		DateTimeLayout: "02/01/2006 15:04:05",
		Colored:        true,
		JSONFormat:     cfg.LogJSON,
	}

	log, err := logger.New(logConfig)
	if err != nil {
		return nil, err
	}

	return &logger.ZLogXAdapter{ZLogX: log}, nil
}

// initializeCache opens the configured cache backend
func (app *Application) initializeCache() error {
	switch app.config.Cache.Backend {
	case config.CacheBackendBadger:
		store, err := cache.NewBadgerStore(app.logger)
		if err != nil {
			return err
		}
		app.store = store
	default:
		app.memoryStore = cache.NewMemoryStore()
		app.store = app.memoryStore
	}
	return nil
}

// initializeDatabase connects to the ERP database when one is configured
func (app *Application) initializeDatabase() error {
	if app.config.DatabaseDSN == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), databaseTimeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return err
	}
	app.db = db
	return nil
}

// initializeServices creates all application services with their dependencies
func (app *Application) initializeServices() error {
	cfg := app.config

	client, err := smartolt.New(smartolt.Config{
		BaseURL: cfg.SmartOLT.BaseURL,
		Token:   cfg.SmartOLT.Token,
		Timeout: cfg.SmartOLT.Timeout,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create SmartOLT client: %w", err)
	}

	callGate := gate.New(gate.Config{
		MinSpacing: cfg.SmartOLT.MinCallSpacing,
		HourlyLimits: map[gate.Class]int{
			gate.ClassDetails: cfg.SmartOLT.DetailsHourlyLimit,
			gate.ClassGPS:     cfg.SmartOLT.GPSHourlyLimit,
		},
	}, app.logger)

	app.services = &Services{}

	var opts []services.MonitorOption
	if app.db != nil {
		erpRepository, err := repository.NewErpRepository(app.db)
		if err != nil {
			return fmt.Errorf("failed to create ERP repository: %w", err)
		}
		app.services.Subscriber = services.NewSubscriberService(erpRepository, app.logger)
		opts = append(opts, services.WithSubscribers(app.services.Subscriber))
	}

	app.services.Monitor = services.NewMonitorService(
		client,
		callGate,
		cache.New(app.store, app.logger),
		app.eventManager,
		services.CacheTTLs{
			Details:      cfg.Cache.Details,
			Status:       cfg.Cache.Status,
			Location:     cfg.Cache.Location,
			List:         cfg.Cache.List,
			DeviceStatus: cfg.Cache.DeviceStatus,
		},
		app.logger,
		opts...,
	)

	return nil
}

// initializeHandlers creates the chat handlers and the websocket hub, all
// sharing the event manager
func (app *Application) initializeHandlers() {
	app.handlers = &Handlers{}

	app.hub = websocket.NewHub(app.logger)
	app.hub.RegisterEventListeners(app.eventManager)

	if !app.config.Telegram.Enabled() {
		return
	}

	app.handlers.Message = handler.NewMessageHandler(app.eventManager, app.services.Monitor, app.logger)
	app.handlers.Message.RegisterEventListeners()

	if chatID := app.config.Telegram.AlertChatID; chatID != 0 {
		app.handlers.Alert = handler.NewAlertHandler(app.eventManager, chatID, app.logger)
		app.handlers.Alert.RegisterEventListeners()
	}
}

// initializeHTTP builds the REST router and the server that serves it
func (app *Application) initializeHTTP() {
	router := api.NewRouter(
		api.NewHandler(app.services.Monitor, app.logger),
		websocket.Handler(app.hub, app.config.HTTP.CORSOrigins),
		api.RouterConfig{
			CORSOrigins:        app.config.HTTP.CORSOrigins,
			RateLimitPerMinute: app.config.HTTP.RateLimitPerMinute,
		},
		app.logger,
	)

	app.server = &http.Server{
		Addr:              app.config.HTTP.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
