package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentinelbank/fraud-service/internal/audit"
	"github.com/sentinelbank/fraud-service/internal/command"
	"github.com/sentinelbank/fraud-service/internal/config"
	"github.com/sentinelbank/fraud-service/internal/db"
	"github.com/sentinelbank/fraud-service/internal/events"
	"github.com/sentinelbank/fraud-service/internal/handler"
	"github.com/sentinelbank/fraud-service/internal/middleware"
	"github.com/sentinelbank/fraud-service/internal/notifier"
	"github.com/sentinelbank/fraud-service/internal/query"
	"github.com/sentinelbank/fraud-service/internal/redis"
	"github.com/sentinelbank/fraud-service/internal/repository"
	"github.com/sentinelbank/fraud-service/internal/rules"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	redisClient, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to redis")
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Write side
	store := repository.NewPostgresStore(database)
	engine := rules.NewEngine(rules.Config{
		HighAmountThreshold: cfg.HighAmountThreshold,
		RapidWindow:         cfg.RapidWindow,
		RapidMaxCount:       cfg.RapidMaxCount,
	})
	publisher := events.NewPublisher(redisClient.Client)

	// Read side
	transactionReadRepo := repository.NewTransactionReadRepository(database, redisClient.Client, log)
	alertReadRepo := repository.NewAlertReadRepository(database)

	commandService := command.NewTransactionCommandService(store, engine, transactionReadRepo, publisher, log)
	transactionQueries := query.NewTransactionQueryService(transactionReadRepo)
	alertQueries := query.NewAlertQueryService(alertReadRepo)

	transactionHandler := handler.NewTransactionHandler(commandService, transactionQueries)
	alertHandler := handler.NewAlertHandler(alertQueries)

	auditor := audit.NewAuditor(store, commandService, cfg.AuditSchedule, log)
	if err := auditor.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start consistency audit")
	}
	defer auditor.Stop()

	startNotifier(ctx, cfg, redisClient, log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/transactions", transactionHandler.CreateTransaction)
		v1.GET("/transactions", transactionHandler.ListTransactions)
		v1.GET("/transactions/:transactionId", transactionHandler.GetTransaction)
		v1.PUT("/transactions/:transactionId", transactionHandler.UpdateTransaction)
		v1.DELETE("/transactions/:transactionId", transactionHandler.DeleteTransaction)
		v1.GET("/alerts", alertHandler.ListAlerts)
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.WithField("address", cfg.ServerAddress).Info("Fraud detection service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}

// startNotifier wires the mail notifier onto the fraud event stream. It is a
// no-op unless SMTP and at least one recipient are configured.
func startNotifier(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *logrus.Logger) {
	if cfg.SMTPHost == "" || cfg.AlertRecipients == "" {
		log.Info("Alert mail notifier disabled")
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "fraud-service"
	}

	mailer := notifier.New(notifier.Config{
		SMTPHost:   cfg.SMTPHost,
		SMTPPort:   cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		Sender:     cfg.SenderEmail,
		Recipients: strings.Split(cfg.AlertRecipients, ","),
	}, log)

	subscriber := events.NewSubscriber(redisClient.Client, log, events.SubscriberConfig{
		Group:    "fraud-notifier",
		Consumer: hostname,
		Stream:   events.FraudEventsStream,
		Handler:  mailer.Handle,
	})

	go func() {
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Notifier subscriber stopped")
		}
	}()
}
