package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/api"
	"github.com/tallbag/gutinvoice/internal/config"
	"github.com/tallbag/gutinvoice/internal/database"
	"github.com/tallbag/gutinvoice/internal/email"
	"github.com/tallbag/gutinvoice/internal/integrations"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/services"
	"github.com/tallbag/gutinvoice/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting GutInvoice...")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ledger and seller profiles
	var (
		store   ledger.Store
		sellers services.SellerStore
		db      *database.DB
	)
	if cfg.UsesMemoryStore() {
		logger.Warn("DB_DRIVER=memory, the ledger is kept in process and lost on restart")
		store = ledger.NewMemoryStore()
		sellers = services.NewMemorySellerStore()
	} else {
		db, err = database.Connect(cfg)
		if err != nil {
			logger.Fatalf("Error connecting to database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx, logger); err != nil {
			logger.Fatalf("Error running migrations: %v", err)
		}
		db.LogStats(logger)
		store = database.NewInvoiceRepository(db, logger)
		sellers = database.NewSellerRepository(db, logger)
	}

	var redis *database.Redis
	if cfg.Redis.Enabled {
		redis, err = database.ConnectRedis(cfg)
		if err != nil {
			logger.Warnf("Error connecting to Redis: %v", err)
			redis = nil
		} else {
			defer redis.Close()
			redis.LogStats(logger)
		}
	} else {
		logger.Warn("Redis disabled, dedupe and seller locks are process local")
	}

	// Document storage
	var remote services.ObjectUploader
	if cfg.HasSupabase() {
		supabaseClient, err := database.NewSupabaseClient(cfg, logger)
		if err != nil {
			logger.Warnf("Error initializing Supabase client: %v", err)
		} else {
			if err := supabaseClient.HealthCheck(ctx); err != nil {
				logger.Warnf("Supabase health check failed: %v", err)
			} else {
				logger.Info("Supabase storage connection healthy")
			}
			remote = supabaseClient
		}
	} else {
		logger.Warnf("Supabase storage credentials not provided, documents are served from %s", cfg.Storage.Path)
	}
	files := services.NewStorageService(remote, cfg.Storage.Path, cfg.Server.BaseURL, logger)

	// External services
	transcriber := integrations.NewSarvamClient(cfg.Sarvam, logger)
	extractor := integrations.NewClaudeClient(cfg.Claude, logger)
	messenger := integrations.NewTwilioMessenger(cfg.Twilio, logger)

	var mailer services.ReportMailer
	if cfg.Email.ResendAPIKey != "" {
		mailer = email.NewResendService(cfg.Email.ResendAPIKey, cfg.Email.From, logger)
		logger.Info("Resend service initialized successfully")
	} else {
		logger.Warn("Resend API key not provided, accountant copies will not be sent")
	}

	var events services.EventPublisher
	inngestClient, err := workflows.NewInngestClient(cfg, logger)
	if err != nil {
		logger.Warnf("Error initializing Inngest client: %v", err)
		events = workflows.NewLogPublisher(logger)
	} else {
		events = inngestClient
	}

	invoiceService := services.NewInvoiceService(services.InvoiceDeps{
		Store:     store,
		Extractor: extractor,
		Generator: services.NewDocumentGenerator(logger, cfg.PDF.Verify),
		Files:     files,
		Messenger: messenger,
		Events:    events,
		Mailer:    mailer,
	}, logger)
	botService := services.NewBotService(sellers, invoiceService, transcriber, messenger, logger)

	// Background processing
	var sink *workflows.DeadLetterSink
	if redis != nil {
		sink = workflows.NewDeadLetterSink(redis, events, logger)
	} else {
		sink = workflows.NewDeadLetterSink(nil, events, logger)
	}
	runner := workflows.NewRunner(cfg.Worker.Count, cfg.Worker.QueueSize, cfg.Worker.TaskTimeout, sink, logger)
	runner.Start(context.Background())

	deps := api.Deps{
		Bot:       botService,
		Runner:    runner,
		Messenger: messenger,
		Signature: messenger,
		Sellers:   sellers,
		Store:     store,
		Invoices:  invoiceService,
		Redis:     redis,
	}
	if db != nil {
		deps.DB = db
	}
	router := api.NewRouter(api.NewAPI(cfg, deps, logger))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// queued messages finish before the stores close
	runner.Stop()
	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
