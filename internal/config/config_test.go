package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.IsLocal() {
		t.Errorf("env: got %s", cfg.App.Env)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.GRPC.Enabled {
		t.Errorf("listeners: %+v %+v", cfg.HTTP, cfg.GRPC)
	}
	if cfg.Auth.TokenTTL != 15*time.Minute || cfg.Auth.RefreshTTL != 7*24*time.Hour {
		t.Errorf("ttls: %v %v", cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Errorf("cors: %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.DB.Driver != DriverPostgres || !cfg.DB.AutoMigrate {
		t.Errorf("db: %+v", cfg.DB)
	}
	if lvl, _ := cfg.LogLevel(); lvl != slog.LevelInfo {
		t.Errorf("log level: %v", lvl)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("JWT_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.IsLocal() || cfg.App.Env != EnvProduction {
		t.Errorf("env: got %s", cfg.App.Env)
	}
	if cfg.DB.Driver != DriverMemory {
		t.Errorf("driver: got %s", cfg.DB.Driver)
	}
	if cfg.Auth.TokenTTL != 5*time.Minute {
		t.Errorf("ttl: got %v", cfg.Auth.TokenTTL)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Errorf("cors: %v", cfg.HTTP.CORSOrigins)
	}
	if lvl, _ := cfg.LogLevel(); lvl != slog.LevelDebug {
		t.Errorf("log level: %v", lvl)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"bad driver", map[string]string{"STORE_DRIVER": "mysql"}, "STORE_DRIVER"},
		{"bad env", map[string]string{"APP_ENV": "qa"}, "APP_ENV"},
		{"zero burst", map[string]string{"RATE_LIMIT_BURST": "0"}, "RATE_LIMIT_BURST"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}
