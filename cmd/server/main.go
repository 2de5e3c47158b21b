package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"member-auth-service/internal/audit"
	auditrepo "member-auth-service/internal/audit/repository"
	authhandler "member-auth-service/internal/auth/handler"
	authservice "member-auth-service/internal/auth/service"
	"member-auth-service/internal/config"
	"member-auth-service/internal/db"
	"member-auth-service/internal/event"
	"member-auth-service/internal/event/producer"
	"member-auth-service/internal/security"
	"member-auth-service/internal/server"
	"member-auth-service/internal/store"
	otelsetup "member-auth-service/internal/telemetry/otel"
	tokenrepo "member-auth-service/internal/token/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "member-auth-service", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var stores store.Stores
	switch cfg.RefreshStore {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		stores = store.NewPostgresWithTokenStore(conn, tokenrepo.NewRedisRepository(rdb))
	default:
		stores = store.NewPostgres(conn)
	}

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	authSvc := authservice.NewAuthService(stores, hasher, tokens, cfg.RefreshTTL())
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), server.ClientIP)

	var events event.Emitter
	var kafkaProducer *producer.KafkaProducer
	if brokers := cfg.EventKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer = producer.NewKafkaProducer(brokers, cfg.EventKafkaTopic)
		events = kafkaProducer
		log.Printf("auth events enabled: brokers=%v topic=%s", brokers, cfg.EventKafkaTopic)
	}

	router := server.NewRouter(server.Deps{
		Auth:         authhandler.New(authSvc, tokens, auditLogger, events),
		HealthPinger: conn,
		Events:       events,
	})
	srv := server.NewHTTPServer(cfg.HTTPAddr, router)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if kafkaProducer != nil {
		time.Sleep(event.ShutdownDrainDuration)
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka producer close: %v", err)
		}
	}
	log.Println("HTTP server stopped")
}
