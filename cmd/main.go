package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invomitra/internal/analytics"
	"invomitra/internal/caching"
	"invomitra/internal/config"
	"invomitra/internal/handlers"
	"invomitra/internal/jobs/background"
	"invomitra/internal/logger"
	"invomitra/internal/middleware"
	"invomitra/internal/repositories"
	"invomitra/internal/services"
	"invomitra/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Environment.Name)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database.URL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(pool, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient)

	store, err := services.NewMinioStore(cfg.Minio)
	if err != nil {
		log.Fatal("failed to initialize document store", zap.Error(err))
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Warn("document bucket unavailable, pdf uploads will fail", zap.String("bucket", cfg.Minio.Bucket), zap.Error(err))
	}

	authSvc, err := services.NewAuthService(cfg.Auth, log)
	if err != nil {
		log.Fatal("failed to initialize session auth", zap.Error(err))
	}
	defer authSvc.Close()

	if !cfg.Razorpay.Configured() {
		log.Warn("razorpay credentials missing, checkout is disabled")
	}

	// Repositories
	subscriberRepo := repositories.NewSubscriberRepo(pool)
	webhookEventRepo := repositories.NewWebhookEventRepo(pool)
	clientRepo := repositories.NewClientRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)

	// Services
	gateway := services.NewRazorpayService(cfg.Razorpay)
	subscriptionSvc := services.NewSubscriptionService(subscriberRepo, cacheSvc, log)
	checkoutSvc := services.NewCheckoutService(gateway, subscriberRepo, cacheSvc, cfg.Razorpay.Configured(), log)
	paymentSvc := services.NewPaymentService(gateway, subscriberRepo, subscriptionSvc, cfg.Razorpay.KeySecret, log)
	webhookSvc := services.NewWebhookService(cfg.Razorpay.WebhookSecret, subscriberRepo, webhookEventRepo, subscriptionSvc, log)
	emailSvc := services.NewEmailService(cfg.Resend, log)
	clientSvc := services.NewClientService(clientRepo)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, clientRepo, store, emailSvc, log)
	analyticsSvc := analytics.NewAnalyticsService(invoiceRepo, cacheSvc, log)

	scheduler, err := background.NewJobScheduler(invoiceSvc, cfg.Jobs.OverdueInterval, log)
	if err != nil {
		log.Fatal("failed to create job scheduler", zap.Error(err))
	}
	scheduler.Start()

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(version, map[string]handlers.Pinger{
		"database": handlers.PingFunc(pool.Ping),
		"redis":    cacheSvc,
		"storage":  store,
	})
	webhookHandlers := handlers.NewWebhookHandlers(webhookSvc)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subscriptionSvc, checkoutSvc, paymentSvc, cfg.Razorpay, log)
	clientHandlers := handlers.NewClientHandlers(clientSvc)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc)
	analyticsHandlers := handlers.NewAnalyticsHandlers(analyticsSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.HTTP.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLogger(log))

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	v1 := e.Group("/v1")
	v1.Use(versionMiddleware.VersionHeader("v1"))

	v1.POST("/webhooks/razorpay", webhookHandlers.RazorpayWebhook)
	v1.GET("/plans", subscriptionHandlers.ListPlans)

	session := v1.Group("")
	session.Use(middleware.SessionAuth(authSvc, log))

	session.GET("/subscription", subscriptionHandlers.GetSubscription)
	session.POST("/payments/failure", subscriptionHandlers.ReportFailure)
	session.GET("/payments/config", subscriptionHandlers.PaymentsConfig)
	session.POST("/invoices/preview", invoiceHandlers.PreviewInvoice)

	checkout := session.Group("/checkout", middleware.PaymentsEnabled(cfg.Features.Payments))
	checkout.POST("/orders", subscriptionHandlers.CreateOrder)
	checkout.POST("/verify", subscriptionHandlers.VerifyPayment)

	gate := middleware.NewSubscriptionGate(subscriptionSvc, cfg.Features.SubscriptionGate, log)
	gated := session.Group("", gate.RequireSubscription())

	gated.GET("/clients", clientHandlers.ListClients)
	gated.POST("/clients", clientHandlers.CreateClient)
	gated.GET("/clients/:id", clientHandlers.GetClient)
	gated.PUT("/clients/:id", clientHandlers.UpdateClient)
	gated.DELETE("/clients/:id", clientHandlers.DeleteClient)

	gated.GET("/invoices", invoiceHandlers.ListInvoices)
	gated.POST("/invoices", invoiceHandlers.CreateInvoice)
	gated.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	gated.PUT("/invoices/:id", invoiceHandlers.UpdateInvoice)
	gated.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice)
	gated.PUT("/invoices/:id/status", invoiceHandlers.UpdateInvoiceStatus)
	gated.DELETE("/invoices/:id/items/:itemId", invoiceHandlers.RemoveInvoiceItem)
	gated.POST("/invoices/:id/pdf", invoiceHandlers.GenerateInvoicePDF)
	gated.POST("/invoices/:id/email", invoiceHandlers.EmailInvoice)

	gated.GET("/dashboard", analyticsHandlers.Dashboard)
	gated.GET("/history", analyticsHandlers.History)

	server := &http.Server{
		Addr:         cfg.HTTP.Address(),
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("starting server",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Environment.Name),
			zap.Bool("subscription_gate", cfg.Features.SubscriptionGate),
			zap.Bool("payments", cfg.Features.Payments))
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := scheduler.Stop(); err != nil {
		log.Error("scheduler shutdown failed", zap.Error(err))
	}
}
