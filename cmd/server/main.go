package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"

	"appointment-booking-api/internal/auth"
	"appointment-booking-api/internal/config"
	"appointment-booking-api/internal/events"
	"appointment-booking-api/internal/grpcapi"
	"appointment-booking-api/internal/handler"
	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/reservation"
	"appointment-booking-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	lvl, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	owners, err := store.NewOwnerCache(st, cfg.Cache.OwnerSize)
	if err != nil {
		return err
	}

	opts := []reservation.Option{reservation.WithLogger(log)}
	if cfg.RabbitMQ.Enabled {
		pub, err := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, reservation.WithPublisher(pub))
	}
	eng := reservation.New(st, owners, opts...)

	guard := auth.NewGuard(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go rl.Run(ctx)

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(cfg.HTTP.CORSOrigins))
	handler.New(handler.Deps{
		Engine:     eng,
		Accounts:   st,
		Guard:      guard,
		Limiter:    rl,
		RefreshTTL: cfg.Auth.RefreshTTL,
		Log:        log,
	}).RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 2)
	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		grpcSrv = grpc.NewServer(grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl),
			middleware.Auth(guard, grpcapi.ListAvailableMethod),
		))
		grpcapi.Register(grpcSrv, grpcapi.NewServer(eng, log))
		go func() {
			log.Info("grpc listening", "addr", cfg.GRPC.Addr)
			if err := grpcSrv.Serve(lis); err != nil {
				errs <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	return httpSrv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Backend, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := store.MigrateUp(cfg.DB.URL); err != nil {
			return nil, nil, err
		}
		log.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(pool)
	if err := st.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("connected to postgres")
	return st, pool.Close, nil
}
