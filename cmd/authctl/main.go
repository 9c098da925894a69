// Command authctl administers the identity database: schema migrations,
// account maintenance and token inspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/config"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/store/pg"
)

var version = "1.0.0"

type globals struct {
	configFile string
	envFile    string
	dsn        string
	timeout    time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Identity and access administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "Config file path (YAML, JSON or TOML)")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&g.dsn, "dsn", "", "PostgreSQL DSN (overrides ENTERPRISE_DATABASE_URL)")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "Overall command timeout")

	cmd.AddCommand(
		migrateCmd(g),
		hashPasswordCmd(),
		createUserCmd(g),
		setPasswordCmd(g),
		seedDemoCmd(g),
		inspectTokenCmd(g),
		healthCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "authctl version %s\n", version)
			},
		},
	)
	return cmd
}

func (g *globals) config() (config.Config, error) {
	opts := []config.Option{config.WithoutValidation()}
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if g.envFile != "" {
		opts = append(opts, config.WithEnvFile(g.envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return config.Config{}, err
	}
	if g.dsn != "" {
		cfg.Database.URL = g.dsn
	}
	obs.ConfigureLogger(obs.LogConfig{Level: cfg.Log.Level, Format: "console"})
	return cfg, nil
}

func (g *globals) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), g.timeout)
}

func (g *globals) openDB() (*pg.Store, config.Config, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, cfg, err
	}
	if cfg.Database.URL == "" {
		return nil, cfg, errors.New("missing DSN: provide --dsn or ENTERPRISE_DATABASE_URL")
	}
	db, err := pg.Open(cfg.Database.URL, pg.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, cfg, fmt.Errorf("open db: %w", err)
	}
	return db, cfg, nil
}

func (g *globals) userService() (*auth.UserService, *pg.Store, error) {
	db, cfg, err := g.openDB()
	if err != nil {
		return nil, nil, err
	}
	users, err := auth.NewUserService(db.Users(), auth.NewPasswordHasher(), auth.DefaultRegistry(), cfg.Auth.MinPasswordLength)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return users, db, nil
}
