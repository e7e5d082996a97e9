package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sudo-simon/amazon-scraper-bot/internal/config"
	"github.com/sudo-simon/amazon-scraper-bot/internal/fetcher"
	addProduct "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/products/add"
	listProducts "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/products/list"
	removeProduct "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/products/remove"
	updateWatchlists "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/update"
	"github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/users"
	addWatchlist "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/watchlists/add"
	listWatchlists "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/watchlists/list"
	removeWatchlist "github.com/sudo-simon/amazon-scraper-bot/internal/http-server/handlers/watchlists/remove"
	"github.com/sudo-simon/amazon-scraper-bot/internal/lib/jwt"
	"github.com/sudo-simon/amazon-scraper-bot/internal/mailer"
	authMiddleware "github.com/sudo-simon/amazon-scraper-bot/internal/middleware/auth"
	"github.com/sudo-simon/amazon-scraper-bot/internal/rabbitmq"
	"github.com/sudo-simon/amazon-scraper-bot/internal/scheduler"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage/authcsv"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage/jsonfile"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage/postgres"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage/redis"
	"github.com/sudo-simon/amazon-scraper-bot/internal/store"
	"github.com/sudo-simon/amazon-scraper-bot/internal/watchlist"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting amazon-scraper-bot", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	// price fetcher, optionally behind the redis cache
	var priceFetcher watchlist.PriceFetcher = fetcher.NewAmazon(cfg.Fetcher.Timeout)
	if cfg.Redis.Enabled {
		priceCache, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Db, cfg.Redis.DefaultTTL)
		if err != nil {
			log.Error("failed to connect redis", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer priceCache.Close()

		priceFetcher = fetcher.NewCached(priceCache, priceFetcher, log)
	}

	// optional price history archive
	var recorder store.PriceRecorder
	if cfg.Postgres.Enabled {
		historyRepo, err := postgres.New(ctx, postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			log.Error("failed to connect postgres", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer historyRepo.Close()

		recorder = historyRepo
	}

	documents, err := jsonfile.New(cfg.Resources.DatabasePath)
	if err != nil {
		log.Error("failed to open database document", slog.String("err", err.Error()))
		os.Exit(1)
	}

	authList, err := authcsv.New(cfg.Resources.AuthUsersPath)
	if err != nil {
		log.Error("failed to open authorized users list", slog.String("err", err.Error()))
		os.Exit(1)
	}

	db, err := store.New(log, documents, authList, priceFetcher, cfg.Fetcher.MaxRetries, cfg.AdminID, recorder)
	if err != nil {
		log.Error("failed to load store", slog.String("err", err.Error()))
		os.Exit(1)
	}

	rabbitMQClient, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitMQ", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer rabbitMQClient.Close()

	digestProducer := rabbitmq.NewProducer(
		rabbitMQClient.Channel,
		cfg.RabbitMQ.QueueName,
	)
	digestConsumer := rabbitmq.NewConsumer(
		rabbitMQClient.Channel,
		log,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.WorkerPoolSize,
	)

	digestMailer := mailer.New(
		log,
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.User,
		cfg.SMTP.Password,
		cfg.SMTP.From,
		cfg.SMTP.To,
	)
	if err := digestMailer.Run(ctx, digestConsumer); err != nil {
		log.Error("failed to start digest mailer", slog.String("err", err.Error()))
		os.Exit(1)
	}

	dailyScheduler := scheduler.New(log, db, digestProducer, cfg.Scheduler.DailyAt)
	go dailyScheduler.Run(ctx)

	jwtParser := jwt.New(cfg.JWTSecret)
	requestValidator := validator.New()

	router := setupRouter(log, requestValidator, db, jwtParser)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.Timeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", slog.String("err", err.Error()))
	}

	log.Info("amazon-scraper-bot stopped")
}

func setupRouter(
	log *slog.Logger,
	validate *validator.Validate,
	db *store.Store,
	jwtParser *jwt.JWTParser,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(authMiddleware.New(jwtParser))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/watchlist", addWatchlist.New(log, db, validate))
	r.Delete("/watchlist", removeWatchlist.New(log, db))
	r.Get("/watchlists", listWatchlists.New(log, db))

	r.Post("/product", addProduct.New(log, db, validate))
	r.Delete("/product", removeProduct.New(log, db))
	r.Get("/products", listProducts.New(log, db))

	r.Post("/update", updateWatchlists.New(log, db))

	r.Post("/users", users.NewGrant(log, db, validate))
	r.Delete("/users", users.NewRevoke(log, db))
	r.Get("/users", users.NewList(log, db))

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
