package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/roster/internal/auth"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/features"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/notify"
	"github.com/JonMunkholm/roster/internal/store"
	"github.com/JonMunkholm/roster/internal/web"
)

func main() {
	// Existing environment variables win over .env
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"validation_workers", cfg.Import.ValidationWorkers,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"mail_provider", cfg.Mail.Provider,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()

	repo, closeRepo, err := openRepo(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	committer := store.NewCommitter(repo, newInviter(cfg), store.WithBcryptCost(cfg.Import.BcryptCost))
	importer := core.NewImporter(core.DefaultStudentSchema(), committer,
		core.WithValidationWorkers(cfg.Import.ValidationWorkers),
		core.WithImportLimiter(limiter),
	)

	flags := features.Parse(cfg.Features.Disabled)
	if !flags.Enabled(auth.RoleAdmin, features.StudentBulkImport) {
		slog.Warn("student bulk import is disabled for admins")
	}

	server := web.NewServer(cfg, web.Deps{
		Importer: importer,
		Guard:    auth.NewGuard(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Flags:    flags,
		Health:   repo,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.Active(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openRepo returns the configured store and a function releasing it.
func openRepo(ctx context.Context, cfg *config.Config) (store.Repo, func(), error) {
	if cfg.Store.Driver == "memory" {
		slog.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryRepo(), func() {}, nil
	}

	if cfg.Store.AutoMigrate {
		applied, err := store.Migrate(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("migrations applied", "versions", applied)
	}

	pool, err := store.Open(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return store.NewPostgresRepo(pool), pool.Close, nil
}

func newInviter(cfg *config.Config) notify.Inviter {
	if strings.EqualFold(cfg.Mail.Provider, "sendgrid") {
		return notify.NewSendgridInviter(notify.SendgridConfig{
			APIKey:    cfg.Mail.SendgridAPIKey,
			Host:      cfg.Mail.SendgridHost,
			FromName:  cfg.Mail.FromName,
			FromEmail: cfg.Mail.FromEmail,
			BaseURL:   cfg.Mail.ActivationURL,
		})
	}
	return notify.LogInviter{BaseURL: cfg.Mail.ActivationURL}
}
