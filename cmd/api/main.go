package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/reloop-app/sync-engine/internal/adapters/cache"
	adapterHTTP "github.com/reloop-app/sync-engine/internal/adapters/handler/http"
	"github.com/reloop-app/sync-engine/internal/adapters/realtime"
	"github.com/reloop-app/sync-engine/internal/adapters/repository"
	"github.com/reloop-app/sync-engine/internal/core/services"
	"github.com/reloop-app/sync-engine/internal/core/workers"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	serverPort := getEnv("PORT", "8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET is not set")
	}
	jwtIssuer := getEnv("JWT_ISSUER", "reloop-sync-engine")

	resetInterval := 1 * time.Minute
	if raw := os.Getenv("RESET_SWEEP_INTERVAL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			log.Fatalf("Critical: invalid RESET_SWEEP_INTERVAL_SECONDS: %q", raw)
		}
		resetInterval = time.Duration(secs) * time.Second
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	rdb, err := cache.NewRedisClient(cache.Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err != nil {
		log.Fatalf("Critical: Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	log.Println("Redis connected successfully.")

	loopRepo := repository.NewCachedLoopRepository(repository.NewPostgresLoopRepository(db), rdb)
	taskRepo := repository.NewPostgresTaskRepository(db)
	completionRepo := repository.NewPostgresCompletionRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)

	publisher := realtime.NewRedisPublisher(rdb)

	loopService := services.NewLoopService(loopRepo, publisher)
	taskService := services.NewTaskService(taskRepo, loopRepo, completionRepo, publisher)
	resetService := services.NewResetService(loopRepo, taskRepo, publisher)
	statsService := services.NewStatsService(loopRepo, completionRepo)
	authService := services.NewAuthService(userRepo)
	tokenService := services.NewTokenService(jwtSecret, jwtIssuer, 24*time.Hour, userRepo)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	resetWorker := workers.NewResetWorker(loopRepo, resetService, resetInterval)
	resetWorker.Start(workerCtx)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(authService, tokenService),
		LoopHandler:  adapterHTTP.NewLoopHandler(loopService, resetService),
		TaskHandler:  adapterHTTP.NewTaskHandler(taskService),
		StatsHandler: adapterHTTP.NewStatsHandler(statsService),
		TokenService: tokenService,
		DB:           db,
		Redis:        rdb,
		StartTime:    startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Reloop Sync Engine running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}
