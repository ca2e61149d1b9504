package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"user-account-service/internal/audit"
	"user-account-service/internal/config"
	"user-account-service/internal/health"
	"user-account-service/internal/identity"
	"user-account-service/internal/logging"
	"user-account-service/internal/platform/rbac"
	"user-account-service/internal/security"
	"user-account-service/internal/server"
	"user-account-service/internal/server/middleware"
	"user-account-service/internal/telemetry"
	telemetryotel "user-account-service/internal/telemetry/otel"
	"user-account-service/internal/telemetry/producer"
	"user-account-service/internal/user/handler"
	"user-account-service/internal/user/repository"
	"user-account-service/internal/user/service"
)

const (
	serviceName     = "user-account-service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure, logger)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	repo, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeStore(closeCtx); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()
	logger.Info("user store ready", zap.String("driver", cfg.StoreDriver))

	codec, err := newTokenCodec(cfg)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	table, err := rbac.LoadTable(cfg.PermissionsFile)
	if err != nil {
		return err
	}
	evaluator, err := rbac.NewEvaluator(ctx, table, logger)
	if err != nil {
		return err
	}

	emitters := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	events := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AccountEventsTopic)
	if events != nil {
		emitters = append(emitters, events)
		logger.Info("account events enabled", zap.String("topic", cfg.AccountEventsTopic))
	}

	svc := service.New(service.Deps{
		Repo:     repo,
		Hasher:   security.NewHasher(cfg.BcryptCost, cfg.HashConcurrency),
		Tokens:   codec,
		Verifier: identity.NewGoogleVerifier(cfg.GoogleClientID, logger),
		Audit:    audit.NewLogger(emitters, middleware.ClientIP, logger),
		Logger:   logger,
	})

	httpTelemetry, err := telemetryotel.NewHTTPMiddleware(providers.TracerProvider, providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("otel http: %w", err)
	}
	exposeCause := !cfg.IsProduction()
	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.RouterDeps{
			Handler:        handler.New(svc, exposeCause, logger),
			Tokens:         codec,
			Callers:        server.CallerLookupFor(svc),
			Checker:        evaluator,
			Telemetry:      httpTelemetry.Handler,
			AllowedOrigins: cfg.CORSOriginsList(),
			ExposeCause:    exposeCause,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	checker := health.NewChecker(repo, evaluator, 0, logger)
	errCh := make(chan error, 2)
	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		grpcSrv = server.NewGRPCServer(checker)
		go func() {
			logger.Info("grpc health server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}
	go checker.Run(ctx)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("server failed, shutting down", zap.Error(runErr))
	}

	stop()
	checker.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if !telemetry.Drain(telemetry.ShutdownDrainDuration) {
		logger.Warn("telemetry drain timed out")
	}
	if err := events.Close(); err != nil {
		logger.Warn("kafka producer close", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return runErr
}

func newTokenCodec(cfg *config.Config) (*security.TokenCodec, error) {
	ttls := security.TTLs{Access: cfg.AccessTTL(), Refresh: cfg.RefreshTTL(), Reset: cfg.ResetTTL()}
	if cfg.HasKeyPair() {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		return security.NewKeyPairCodec(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, ttls)
	}
	return security.NewHMACCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, ttls)
}
