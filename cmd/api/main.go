package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/config"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/grpcauth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/httpapi"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

type stores struct {
	users    auth.UserStore
	audit    audit.Store
	projects auth.ProjectStore
	ready    httpapi.ReadyProbe
	db       *pg.Store
}

func main() {
	obs.Init()

	var opts []config.Option
	if _, err := os.Stat(".env"); err == nil {
		opts = append(opts, config.WithEnvFile(".env"))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("load config")
	}
	obs.ConfigureLogger(obs.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	obs.InitBuildInfo(obs.BuildInfo{
		Version:    version,
		Commit:     commit,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	log := obs.Component("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}

	hasher := auth.NewPasswordHasher()
	registry := auth.DefaultRegistry()
	tokens, err := auth.NewTokenService(cfg.Auth.Secret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("token service")
	}
	svc, err := auth.NewService(st.users, hasher, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("auth service")
	}
	users, err := auth.NewUserService(st.users, hasher, registry, cfg.Auth.MinPasswordLength)
	if err != nil {
		log.Fatal().Err(err).Msg("user service")
	}
	if st.db == nil {
		if _, err := auth.SeedDemo(ctx, users); err != nil {
			log.Fatal().Err(err).Msg("seed demo accounts")
		}
		log.Warn().Msg("no database configured: in-memory stores with demo accounts")
	}

	trail := audit.NewTrail(st.audit,
		audit.WithBuffer(cfg.Audit.Buffer),
		audit.WithHistoryLimit(cfg.Audit.HistoryLimit),
	)
	go trail.Run(context.Background())

	gateway := auth.NewGateway(tokens, registry)
	api, err := httpapi.New(httpapi.Deps{
		Auth:     svc,
		Users:    users,
		Gateway:  gateway,
		Audit:    trail,
		Projects: st.projects,
		Ready:    st.ready,
	},
		httpapi.WithVersion(version),
		httpapi.WithLoginRateLimit(cfg.RateLimit.LoginBurst, cfg.RateLimit.LoginPerSecond),
		httpapi.WithCORSOrigins(cfg.CORS.AllowedOrigins...),
		httpapi.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httpapi.WithHistoryLimit(cfg.Audit.HistoryLimit),
		httpapi.WithTrustedProxies(cfg.HTTP.TrustedProxies...),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("http api")
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http listen")
		}
	}()

	var grpcSrv *httpapi.GRPCServer
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.GRPC.Addr).Msg("grpc listen")
		}
		grpcSrv = httpapi.NewGRPCServer(st.ready, grpcauth.New(gateway))
		go grpcSrv.WatchReadiness(ctx, 15*time.Second)
		go func() {
			log.Info().Str("addr", cfg.GRPC.Addr).Msg("grpc listening")
			if err := grpcSrv.Serve(lis); err != nil {
				log.Error().Err(err).Msg("grpc serve")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := trail.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("audit trail did not drain")
	}
	if st.db != nil {
		_ = st.db.Close()
	}
	log.Info().Msg("stopped")
}

func openStores(cfg config.Config) (stores, error) {
	if cfg.Database.URL == "" {
		return stores{
			users:    auth.NewMemoryStore(),
			audit:    audit.NewMemoryStore(),
			projects: auth.NewMemoryProjects(auth.ProjectRef{ID: 1, CreatorID: 2, AssigneeID: 3}),
		}, nil
	}
	db, err := pg.Open(cfg.Database.URL, pg.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:    db.Users(),
		audit:    db.Audit(),
		projects: db.Projects(),
		ready:    db,
		db:       db,
	}, nil
}
