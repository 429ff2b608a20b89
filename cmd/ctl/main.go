// Command ctl runs operational tasks against the marketplace database:
// maintenance switch, reset token housekeeping, schema repair and account seeding.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/neutec/secondhand-backend/config"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/redis"
	"github.com/neutec/secondhand-backend/pkg/retry"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	a := &app{out: os.Stdout}
	defer a.close()

	if err := newRootCommand(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		a.close()
		os.Exit(1)
	}
}

// app holds lazily opened connections shared by subcommands
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	tokens repository.PasswordResetRepository
	out    io.Writer

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *app) database() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(&cfg.Database); err != nil {
		return nil, err
	}
	a.db = db.GetDB()
	a.closers = append(a.closers, db.Close)
	return a.db, nil
}

func (a *app) selfHealPolicy() retry.Policy {
	if a.cfg == nil {
		return retry.DefaultPolicy
	}
	return retry.Policy{
		MaxAttempts:    a.cfg.SelfHeal.MaxAttempts,
		AttemptTimeout: a.cfg.SelfHeal.AttemptTimeout,
		Backoff:        a.cfg.SelfHeal.Backoff,
	}
}

func (a *app) tokenStore() (repository.PasswordResetRepository, error) {
	if a.tokens != nil {
		return a.tokens, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	var gdb *gorm.DB
	var rdb goredis.UniversalClient
	switch cfg.PasswordReset.TokenStore {
	case repository.TokenStoreRedis:
		client, err := redis.Init(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		rdb = client
		a.closers = append(a.closers, redis.Close)
	case repository.TokenStoreMemory:
		return nil, fmt.Errorf("the memory token store lives inside the server process")
	default:
		if gdb, err = a.database(); err != nil {
			return nil, err
		}
	}

	store, err := repository.NewPasswordResetStore(cfg.PasswordReset.TokenStore, gdb, rdb,
		repository.PasswordResetOptions{SelfHeal: a.selfHealPolicy()})
	if err != nil {
		return nil, err
	}
	a.tokens = store
	return store, nil
}

func newRootCommand(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "ctl",
		Short:         "Operations tool for the secondhand marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.Initialize(logger.Config{Level: level, Format: "console", Output: os.Stderr})
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(newMaintenanceCommand(a))
	cmd.AddCommand(newTokensCommand(a))
	cmd.AddCommand(newDBCommand(a))
	cmd.AddCommand(newUsersCommand(a))
	return cmd
}
