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

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/store"
)

// reservationSweepInterval is how often expired reservations are canceled.
const reservationSweepInterval = time.Hour

type serveOptions struct {
	*rootOptions
	Addr      string
	AdminUser string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lending API server",
		Long: `Run the HTTP/JSON lending API.

A missing database is created on first run together with an admin
account whose password is printed once.

Examples:
  izposoja serve
  izposoja serve --db ./izposoja.sqlite3 --addr :9090 --config policy.yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().StringVarP(&opts.AdminUser, "user", "u", "Admin", "admin username on first run")

	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(opts.DBPath); errors.Is(err, os.ErrNotExist) {
		database, password, err := initDatabase(opts.DBPath, opts.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cmd.OutOrStdout(), opts.DBPath, opts.AdminUser, password)
		fmt.Fprintln(cmd.OutOrStdout())
	}

	database, err := db.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	slog.Info("database ready", "path", opts.DBPath)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	cart := lending.NewCartDispatcher(lending.StoreCart{DB: database}, opts.policy.CartQueueSize)
	defer cart.Close()

	svc := lending.NewService(database, opts.policy, lending.WithCartNotifier(cart))

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           api.NewRouter(database, svc, jwtSecret),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweepReservations(ctx, svc)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", opts.Addr,
		"loan_period", opts.policy.LoanPeriod, "max_renewals", opts.policy.MaxRenewals)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// sweepReservations cancels stale reservations until ctx is done.
func sweepReservations(ctx context.Context, svc *lending.Service) {
	ticker := time.NewTicker(reservationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpireReservations(ctx, 0); err != nil && ctx.Err() == nil {
				slog.Error("expiring reservations", "error", err)
			}
		}
	}
}
