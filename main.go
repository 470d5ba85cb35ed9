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

	"nanas/models"
	"nanas/pkg/config"
	"nanas/pkg/donations"
	"nanas/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "nanas",
		Short:        "Nanas Foundation site backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional KEY=value file; environment variables take precedence")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations and seeding, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), envFile)
		},
	})
	root.AddCommand(newSanitizeCmd(&envFile))
	return root
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func bootstrap(ctx context.Context, envFile string) (*config.Config, *gorm.DB, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel)
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.AutoMigrate {
		migrate(db, log)
	}
	if err := seed(ctx, db, cfg, log); err != nil {
		return nil, nil, nil, fmt.Errorf("seed: %w", err)
	}
	return cfg, db, log, nil
}

func runMigrate(ctx context.Context, envFile string) error {
	cfg, db, log, err := bootstrap(ctx, envFile)
	if err != nil {
		return err
	}
	if !cfg.AutoMigrate {
		migrate(db, log) // explicit command always migrates
	}
	fmt.Println("migration and seeding completed")
	return nil
}

func newFileStore(ctx context.Context, cfg config.Storage) (storage.Store, error) {
	if cfg.Backend == "s3" {
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
	}
	return storage.NewLocalStore(cfg.UploadBase, "/uploads")
}

func newDonationController(cfg *config.Config, db *gorm.DB, log *slog.Logger) (*donations.Controller, error) {
	store := donations.NewGormStore(db)
	if cfg.Donations.Mode == config.ModeDirect {
		return donations.NewDirect(store, log), nil
	}
	return donations.NewCheckout(donations.Config{
		Currency:    cfg.Donations.Currency,
		SuccessURL:  cfg.Donations.SuccessURL,
		CancelURL:   cfg.Donations.CancelURL,
		FallbackURL: cfg.Donations.CheckoutFallbackURL,
		MaxAmount:   models.MaxDonationAmount,
	}, donations.NewStripeClient(cfg.Donations.StripeSecretKey), store, log)
}

func runServe(ctx context.Context, envFile string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, log, err := bootstrap(ctx, envFile)
	if err != nil {
		return err
	}
	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("file storage: %w", err)
	}
	dc, err := newDonationController(cfg, db, log)
	if err != nil {
		return err
	}
	s := newServer(cfg, db, dc, files, log)

	// Bank choices can change without a restart; everything else needs one.
	if err := config.Watch(envFile, log, func(next *config.Config) {
		s.setBanks(next.Donations.Banks)
		log.Info("donation banks reloaded", "count", len(next.Donations.Banks))
	}); err != nil {
		log.Info("config watch disabled", "err", err)
	}

	r := gin.Default()
	s.setupRoutes(r)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "donation_mode", cfg.Donations.Mode, "storage", cfg.Storage.Backend)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
