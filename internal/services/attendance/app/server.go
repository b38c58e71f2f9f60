// Package server assembles and runs the attendance service: SQLite
// storage, the domain services, the HTTP API, and a gRPC health endpoint
// for process supervision.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aulatap/aulatap/internal/platform/timeouts"
	httpapi "github.com/aulatap/aulatap/internal/services/attendance/api/http"
	"github.com/aulatap/aulatap/internal/services/attendance/domain"
	attendancesqlite "github.com/aulatap/aulatap/internal/services/attendance/storage/sqlite"
)

// RuntimeConfig controls attendance service startup and dependencies.
type RuntimeConfig struct {
	Port          int
	HealthPort    int
	DBPath        string
	JWTSecret     string
	LateTolerance time.Duration
}

const (
	defaultPort       = 8080
	defaultHealthPort = 8081
	defaultDBPath     = "data/attendance.db"
)

// Run starts the attendance service and blocks until the context is
// cancelled or a server fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return fmt.Errorf("jwt secret is required")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create attendance storage dir: %w", err)
		}
	}

	store, err := attendancesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open attendance sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close attendance sqlite store: %v", closeErr)
		}
	}()

	adapter := newDomainStoreAdapter(store)
	lifecycle := domain.NewLifecycle(adapter, nil, nil)
	ledger := domain.NewLedger(adapter, cfg.LateTolerance, nil, nil)

	app := fiber.New(fiber.Config{
		AppName:               "aulatap-attendance",
		DisableStartupMessage: true,
		ReadTimeout:           timeouts.ReadHeader,
		WriteTimeout:          timeouts.Request,
	})
	httpapi.NewHandler(lifecycle, ledger).Register(app, []byte(cfg.JWTSecret))

	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}
	defer healthListener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("attendance.api", grpc_health_v1.HealthCheckResponse_SERVING)

	healthErr := make(chan error, 1)
	go func() {
		healthErr <- grpcServer.Serve(healthListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-healthErr
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()

	log.Printf("attendance server listening at :%d (health :%d)", cfg.Port, cfg.HealthPort)

	select {
	case <-ctx.Done():
		if err := app.ShutdownWithTimeout(timeouts.Shutdown); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}
