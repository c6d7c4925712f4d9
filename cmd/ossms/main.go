// Command ossms runs the office supplies inventory backend.
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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/ossms/internal/api"
	"github.com/erazemk/ossms/internal/auth"
	"github.com/erazemk/ossms/internal/bootstrap"
	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/config"
	"github.com/erazemk/ossms/internal/db"
	"github.com/erazemk/ossms/internal/identity"
	"github.com/erazemk/ossms/internal/ledger"
	"github.com/erazemk/ossms/internal/notify"
	"github.com/erazemk/ossms/internal/report"
	"github.com/erazemk/ossms/internal/store"
)

var version = "dev"

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	dbPath     string
	logPath    string
	logLevel   string

	cfg      *config.Config
	closeLog func()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ossms",
		Short:         "Office supplies inventory backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: $OSSMS_CONFIG)")
	cmd.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "SQLite database path")
	cmd.PersistentFlags().StringVarP(&opts.logPath, "log", "l", "", "log file path (default: stdout/stderr only)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newRecalcCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// load resolves the configuration, applies flag overrides and sets up logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logPath != "" {
		cfg.LogPath = o.logPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	closeLog, err := setupLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.closeLog = closeLog
	return nil
}

// app is a fully wired process.
type app struct {
	store    *store.Store
	commands *command.Service
}

// openApp opens the database, bootstraps it and wires the services.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	st := store.New(database)

	res, err := bootstrap.Run(ctx, st, bootstrap.Options{
		AdminPassword:  cfg.AdminPassword,
		SeedSampleData: cfg.SeedSampleData,
		BcryptCost:     cfg.BcryptCost,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath, "admin_created", res.AdminCreated, "seeded", res.Seeded)

	var secret string
	err = st.Update(ctx, func(q store.Querier) error {
		var err error
		secret, err = store.GetJWTSecret(ctx, q)
		return err
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("loading jwt secret: %w", err)
	}

	notifier := &notify.EnvNotifier{AppEnv: cfg.AppEnv, Queue: cfg.NotifyQueue}
	ids := identity.New(st, notifier, identity.Options{
		BcryptCost: cfg.BcryptCost,
		TokenTTL:   cfg.ResetTokenTTL,
		ResetURL:   cfg.ResetURL,
	})
	sessions := auth.NewSessions(secret, auth.DefaultSessionTTL)

	return &app{
		store:    st,
		commands: command.New(st, ledger.New(st), ids, sessions, version),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("closing database", "error", err)
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap the database and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.cfg.IsProduction() && opts.cfg.AdminPassword == bootstrap.DefaultAdminPassword {
				slog.Warn("running in production with the default admin password")
			}

			return serve(ctx, opts.cfg.Addr, api.NewRouter(a.commands, api.Options{
				LoginRate:  opts.cfg.LoginRate,
				LoginBurst: opts.cfg.LoginBurst,
			}))
		},
	}
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	slog.Info("server stopped, closing database")
	return err
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema, the admin account and the sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database ready: %s\n", opts.cfg.DBPath)
			fmt.Fprintf(out, "Admin account: %s\n", bootstrap.AdminUsername)
			if opts.cfg.AdminPassword == bootstrap.DefaultAdminPassword {
				fmt.Fprintln(out, "The admin uses the default password. Change it after logging in.")
			}
			return nil
		},
	}
}

func newRecalcCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute the stock status of every supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.commands.RecalculateStockStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print inventory reports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "low-stock",
		Short: "List supplies at or below their minimum stock level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			supplies, err := a.commands.LowStock(cmd.Context())
			if err != nil {
				return err
			}
			return report.LowStock(cmd.OutOrStdout(), supplies)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "valuation",
		Short: "Print the value of stock on hand per supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			supplies, err := a.commands.ListSupplies(cmd.Context())
			if err != nil {
				return err
			}
			return report.Valuation(cmd.OutOrStdout(), supplies)
		},
	})

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", command.AppName, version)
			return nil
		},
	}
}
