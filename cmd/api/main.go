package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/config"
	"github.com/telemedhq/telemed-api/internal/handlers"
	"github.com/telemedhq/telemed-api/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	st := store.New(client.Database(cfg.MongoDatabase))
	if err := st.EnsureIndexes(ctx); err != nil {
		logger.Fatal("index creation failed", zap.Error(err))
	}
	logger.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))

	var google auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		google, err = auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			logger.Warn("google verifier init failed, google login disabled", zap.Error(err))
			google = nil
		}
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	var limiter auth.LoginLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed, login rate limiting disabled", zap.Error(err))
		} else {
			limiter = auth.NewRedisLoginLimiter(redisClient, 10*time.Minute, 10)
		}
		pingCancel()
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.TokenTTL)
	h := handlers.NewHandler(logger, st, st, st, tokens, google, limiter)
	router := handlers.NewRouter(logger, h, tokens, st, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
