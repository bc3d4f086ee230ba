package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	accountrepo "qna-platform/backend/internal/account/repository"
	accountservice "qna-platform/backend/internal/account/service"
	answerrepo "qna-platform/backend/internal/answer/repository"
	answerservice "qna-platform/backend/internal/answer/service"
	"qna-platform/backend/internal/audit"
	auditrepo "qna-platform/backend/internal/audit/repository"
	"qna-platform/backend/internal/config"
	"qna-platform/backend/internal/db"
	healthhandler "qna-platform/backend/internal/health/handler"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/platform/rbac"
	"qna-platform/backend/internal/policy/engine"
	questionrepo "qna-platform/backend/internal/question/repository"
	questionservice "qna-platform/backend/internal/question/service"
	"qna-platform/backend/internal/security"
	sessionrepo "qna-platform/backend/internal/session/repository"
	"qna-platform/backend/internal/server"
	"qna-platform/backend/internal/telemetry"
	telemetryotel "qna-platform/backend/internal/telemetry/otel"
)

const serviceName = "qna-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: serviceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	metrics, err := telemetryotel.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("telemetry: metrics: %v", err)
	}

	conn, err := db.OpenContext(ctx, cfg.DatabaseURL, db.PoolOptions{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	sessions, closeSessions, err := sessionStore(cfg, conn)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}
	defer closeSessions()

	tokens, err := tokenCodec(cfg)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	authz, policyChecker, err := authorizer(ctx, cfg)
	if err != nil {
		log.Fatalf("authz: %v", err)
	}

	var emitter telemetry.EventEmitter
	if cfg.OTelEndpoint != "" {
		emitter = telemetryotel.NewEventEmitter(providers.LoggerProvider)
	}
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), audit.ClientIP, emitter)

	accounts := accountrepo.NewPostgresRepository(conn)
	auth := identityservice.NewAuthService(
		accounts,
		sessions,
		security.NewPasswordCrypto(security.PasswordParams{
			Time:     cfg.Argon2Time,
			MemoryKB: cfg.Argon2MemoryKB,
			Threads:  cfg.Argon2Threads,
		}),
		tokens,
		auditLogger,
		identityservice.Options{
			SessionTTL:    cfg.SessionTTL(),
			EnforceExpiry: cfg.EnforceSessionExpiry,
			Metrics:       metrics,
		},
	)
	tracker := server.NewCallerTracker(auth)
	questions := questionservice.NewService(tracker, questionrepo.NewPostgresRepository(conn), accounts, authz)
	health := healthhandler.NewServer(conn, policyChecker)

	api := server.New(server.Deps{
		Auth:      auth,
		Accounts:  accountservice.NewService(tracker, accounts, authz, auditLogger),
		Questions: questions,
		Answers:   answerservice.NewService(tracker, answerrepo.NewPostgresRepository(conn), questions, authz),
		Health:    health,
		Audit:     auditLogger,
		Metrics:   metrics,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		grpcSrv = server.NewGRPCServer(health)
		go func() {
			log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	// Let in-flight audit telemetry finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("server stopped")
}

// sessionStore returns the configured session repository and a close function.
func sessionStore(cfg *config.Config, conn *sql.DB) (identityservice.SessionRepo, func(), error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return sessionrepo.NewPostgresRepository(conn), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return sessionrepo.NewRedisRepository(client), func() { _ = client.Close() }, nil
}

// tokenCodec builds an RS256/ES256 codec from the key pair, or HS256 from JWT_SECRET.
func tokenCodec(cfg *config.Config) (*security.TokenCodec, error) {
	if !cfg.AuthEnabled() {
		return nil, errors.New("set JWT_PRIVATE_KEY and JWT_PUBLIC_KEY, or JWT_SECRET")
	}
	if cfg.JWTPrivateKey != "" {
		return security.NewTokenCodecFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience)
	}
	return security.NewHMACTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience)
}

// authorizer returns the configured policy and, for OPA, a health checker for it.
func authorizer(ctx context.Context, cfg *config.Config) (rbac.Authorizer, healthhandler.PolicyChecker, error) {
	if cfg.AuthzEngine != config.AuthzEngineOPA {
		return rbac.NewPolicy(), nil, nil
	}
	var (
		a   *engine.OPAAuthorizer
		err error
	)
	if cfg.AuthzPolicyFile != "" {
		a, err = engine.LoadOPAAuthorizer(ctx, cfg.AuthzPolicyFile)
	} else {
		a, err = engine.NewOPAAuthorizer(ctx, "")
	}
	if err != nil {
		return nil, nil, err
	}
	return a, a, nil
}
