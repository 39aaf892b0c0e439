package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splittrack/internal/auth"
	"github.com/mmynk/splittrack/internal/cache"
	"github.com/mmynk/splittrack/internal/config"
	"github.com/mmynk/splittrack/internal/events"
	"github.com/mmynk/splittrack/internal/middleware"
	"github.com/mmynk/splittrack/internal/service"
	"github.com/mmynk/splittrack/internal/storage/backend"
	"github.com/mmynk/splittrack/internal/summary"
	"github.com/mmynk/splittrack/internal/telemetry"
	"github.com/mmynk/splittrack/pkg/api/apiconnect"
	"github.com/mmynk/splittrack/pkg/logging"
)

const serviceName = "splittrack"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	metrics := telemetry.NewMetrics()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", cfg.DataBackend, "database", backend.Describe(cfg))

	formatter, err := summary.NewFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		return err
	}

	var balances *cache.GroupBalances
	if cfg.CacheBalances() {
		balances = cache.NewGroupBalances(cfg.BalanceCacheTTL, metrics)
		go balances.RunCleanup(ctx, cfg.BalanceCacheTTL)
	}

	// origin tags events from this process so its own are skipped.
	origin := uuid.NewString()
	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, metrics)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer client.Close()
		publisher = client

		go func() {
			err := client.ConsumeGroupChanges(ctx, func(ctx context.Context, msg *events.GroupChange) error {
				if msg.Origin != origin {
					balances.Invalidate(msg.GroupID)
				}
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Event consumer stopped", "error", err)
			}
		}()
		slog.Info("Events enabled", "exchange", cfg.AMQPExchange, "origin", origin)
	}

	if balances != nil && cfg.AMQPURL == "" {
		slog.Warn("Balance cache enabled without AMQP; other replicas' writes are not seen until entries expire",
			"ttl", cfg.BalanceCacheTTL)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	interceptors := connect.WithInterceptors(
		middleware.MetricsInterceptor(metrics),
		middleware.RequireAuth(jwtManager,
			apiconnect.AuthServiceRegisterProcedure,
			apiconnect.AuthServiceLoginProcedure,
		),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()

	authSvc := service.NewAuthService(authenticator, jwtManager, store, slog.Default())
	mux.Handle(apiconnect.NewAuthServiceHandler(authSvc, interceptors))

	groupSvc := service.NewGroupService(store,
		service.WithBalanceCache(balances),
		service.WithPublisher(publisher, origin),
		service.WithFormatter(formatter),
		service.WithGroupMetrics(metrics),
	)
	mux.Handle(apiconnect.NewGroupServiceHandler(groupSvc, interceptors))

	balanceSvc := service.NewBalanceService(store, formatter, metrics)
	mux.Handle(apiconnect.NewBalanceServiceHandler(balanceSvc, interceptors))

	expenseSvc := service.NewExpenseService(store)
	mux.Handle(apiconnect.NewExpenseServiceHandler(expenseSvc, interceptors))

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Health check failed", "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
