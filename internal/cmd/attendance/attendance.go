// Package attendance parses attendance command flags and launches the
// attendance service runtime.
package attendance

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/aulatap/aulatap/internal/platform/cmd"
	attendanceserver "github.com/aulatap/aulatap/internal/services/attendance/app"
)

// Config holds attendance command configuration.
type Config struct {
	Port          int           `env:"AULATAP_ATTENDANCE_PORT" envDefault:"8080"`
	HealthPort    int           `env:"AULATAP_ATTENDANCE_HEALTH_PORT" envDefault:"8081"`
	DBPath        string        `env:"AULATAP_ATTENDANCE_DB_PATH" envDefault:"data/attendance.db"`
	JWTSecret     string        `env:"AULATAP_ATTENDANCE_JWT_SECRET"`
	LateTolerance time.Duration `env:"AULATAP_ATTENDANCE_LATE_TOLERANCE" envDefault:"15m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The attendance HTTP API port")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The attendance health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The attendance SQLite database path")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Shared secret for API bearer tokens")
	fs.DurationVar(&cfg.LateTolerance, "late-tolerance", cfg.LateTolerance, "Grace period before a tap counts as late")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the attendance service runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAttendance, func(context.Context) error {
		return attendanceserver.Run(ctx, attendanceserver.RuntimeConfig{
			Port:          cfg.Port,
			HealthPort:    cfg.HealthPort,
			DBPath:        cfg.DBPath,
			JWTSecret:     cfg.JWTSecret,
			LateTolerance: cfg.LateTolerance,
		})
	})
}
