// Package app assembles the storefront payment service from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/handler/pb"
	"github.com/rl1809/storefront/internal/adapter/paystack"
	"github.com/rl1809/storefront/internal/adapter/shopify"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Stores groups the persistence ports the payment flow depends on.
type Stores struct {
	Orders port.OrderRepository
	Carts  port.CartRepository
	Cache  port.CacheRepository
}

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	Payments *service.PaymentService
	db       *sql.DB
	rdb      *redis.Client
}

// OpenMySQL connects and pings the configured database.
func OpenMySQL(ctx context.Context, cfg config.MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// OpenRedis connects and pings the configured Redis.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// New connects to MySQL and Redis and wires the payment service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := OpenMySQL(ctx, cfg.MySQL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to mysql")

	rdb, err := OpenRedis(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("connected to redis", "addr", cfg.Redis.Addr)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	a := NewWithStores(cfg, logger, Stores{
		Orders: mysqlAdapter,
		Carts:  mysqlAdapter,
		Cache:  storage.NewRedisAdapter(rdb, cfg.Redis.BanksTTL),
	}, paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout))
	a.db, a.rdb = db, rdb
	return a, nil
}

// NewWithStores wires the payment service over the given stores and gateway.
func NewWithStores(cfg *config.Config, logger *slog.Logger, stores Stores, gateway port.PaymentGateway) *App {
	var fulfillment port.FulfillmentService
	if cfg.Shopify.Enabled() {
		fulfillment = shopify.NewClient(cfg.Shopify.Store, cfg.Shopify.APIVersion, cfg.Shopify.AccessToken, cfg.Shopify.Timeout)
		logger.Info("shopify fulfillment enabled", "store", cfg.Shopify.Store)
	}

	reconciler := service.NewReconciler(stores.Orders, stores.Carts, stores.Cache, fulfillment, logger)
	payments := service.NewPaymentService(service.Config{
		CallbackURL:   cfg.Paystack.CallbackURL,
		FrontendURL:   cfg.FrontendURL,
		WebhookSecret: cfg.Paystack.WebhookSecret,
		Channels:      cfg.Paystack.Channels,
	}, gateway, stores.Orders, stores.Cache, reconciler, logger)

	return &App{cfg: cfg, logger: logger, Payments: payments}
}

// HTTPHandler returns the full HTTP handler chain.
func (a *App) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	handler.NewHTTPHandler(a.Payments, a.logger).Routes(mux)
	return handler.WithRecovery(a.logger, handler.WithLogging(a.logger, mux))
}

func (a *App) GRPCServer() *grpc.Server {
	srv := grpc.NewServer()
	pb.RegisterPaymentServiceServer(srv, handler.NewGRPCHandler(a.Payments))
	return srv
}

// Run serves HTTP and gRPC until ctx is cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	grpcServer := a.GRPCServer()
	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("gRPC server listening", "addr", a.cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		a.logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down...")
	case runErr = <-errCh:
		a.logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	a.logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	a.logger.Info("gRPC server stopped")

	return runErr
}

func (a *App) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Info("connections closed")
}
