package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dfryer1193/dururack/archive/application"
	"github.com/dfryer1193/dururack/internal/config"
	"github.com/dfryer1193/dururack/internal/middleware"
	"github.com/dfryer1193/dururack/internal/rest"
	gh "github.com/dfryer1193/dururack/shared/github"
	"github.com/dfryer1193/dururack/shared/scheduler"
	"github.com/dfryer1193/dururack/shared/watch"
	webhook "github.com/dfryer1193/dururack/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Starts the JSON API. Online archives are refreshed and deleted posts purged
on the configured schedules. When a GitHub repository is configured its posts are
synced on start and on every push webhook.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts.cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(router, st.service)

	if cfg.Github.Enabled() {
		syncService, err := startGithubSync(cfg.Github, st)
		if err != nil {
			return err
		}
		defer func() {
			if err := syncService.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to gracefully close sync service")
			}
		}()

		router.POST("/webhook/git", gin.WrapH(webhook.NewWebhookHandler(syncService, cfg.Github.WebhookSecret).Router()))
	}

	sched, err := newScheduler(cfg.Sync, st.service)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Dir != "" {
		watcher, err := watch.New(cfg.Watch.Dir, ".json", watch.DefaultDebounce, importFile(st.service))
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

func startGithubSync(cfg config.GithubConfig, st *store) (*application.SyncService, error) {
	ctx := context.Background()
	sourceRepo := gh.NewGithubSourceRepository(gh.NewClient(cfg.Token), cfg.Owner, cfg.Repo)

	mainBranchName, err := sourceRepo.GetDefaultBranchName(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get default branch name: %w", err)
	}

	syncService := application.NewSyncService(st.posts, st.archives, sourceRepo, cfg.ArchiveID, mainBranchName)
	if err := syncService.EnsureArchive(ctx); err != nil {
		syncService.Close()
		return nil, err
	}

	if err := syncService.SyncRepositoryChanges(); err != nil {
		log.Error().Err(err).Str("repo", sourceRepo.GetRepoFullName()).Msg("Failed to sync repository changes")
	}

	return syncService, nil
}

func newScheduler(cfg config.SyncConfig, service *application.ArchiveService) (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.DefaultJobTimeout)

	if cfg.RefreshSchedule != "" {
		if err := sched.AddJob("refresh-online", cfg.RefreshSchedule, service.RefreshOnlineArchives); err != nil {
			return nil, err
		}
	}

	if cfg.PurgeSchedule != "" {
		purgeAfter := cfg.PurgeAfter.Duration
		err := sched.AddJob("purge-deleted", cfg.PurgeSchedule, func(ctx context.Context) error {
			_, err := service.PurgeDeletedPosts(ctx, purgeAfter)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func importFile(service *application.ArchiveService) watch.Handler {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = service.Import(ctx, data)
		return err
	}
}
