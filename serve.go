package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/apps/go-server/internal/auth"
	"github.com/robalobadob/connections/apps/go-server/internal/config"
	"github.com/robalobadob/connections/apps/go-server/internal/db"
	"github.com/robalobadob/connections/apps/go-server/internal/httpserver"
	"github.com/robalobadob/connections/apps/go-server/internal/logging"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP game server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		if p, _ := cmd.Flags().GetString("port"); p != "" {
			cfg.Port = p
		}
		logging.Setup(cfg.LogLevel, cfg.LogFormat)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "port to listen on (overrides PORT)")
}

func runServe(ctx context.Context, cfg config.Config) error {
	cat, err := loadCatalogue(cfg)
	if err != nil {
		return err
	}
	log.Info().Int("puzzles", cat.Len()).Msg("catalogue loaded")

	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sqlDB.Close()

	sessions, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := httpserver.New(httpserver.Deps{
		Store:     sessions,
		DB:        sqlDB,
		Catalogue: cat,
		Auth: auth.NewService(sqlDB, auth.Options{
			Secret:      cfg.JWTSecret,
			ExpiresDays: cfg.JWTExpiresDays,
			CookieName:  cfg.CookieName,
			Secure:      cfg.Production,
		}),
		DailySalt:    cfg.DailySalt,
		ClientOrigin: cfg.ClientOrigin,
		Registry:     reg,
	})

	log.Info().Str("port", cfg.Port).Str("store", cfg.SessionStore).Msg("starting go-server")
	return srv.Run(ctx, ":"+cfg.Port)
}

// openStore picks the session backend named by SESSION_STORE.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.SessionStore {
	case "", "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "redis":
		rs := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, store.WithTTL(cfg.SessionTTL))
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_STORE %q (want memory or redis)", cfg.SessionStore)
	}
}
