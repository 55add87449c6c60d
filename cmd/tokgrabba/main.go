package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iconidentify/tokgrabba/internal/api"
	"github.com/iconidentify/tokgrabba/internal/api/handler"
	"github.com/iconidentify/tokgrabba/internal/chat/discord"
	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/downloader"
	"github.com/iconidentify/tokgrabba/internal/logging"
	"github.com/iconidentify/tokgrabba/internal/repository"
	"github.com/iconidentify/tokgrabba/internal/service"
	"github.com/iconidentify/tokgrabba/internal/supervisor"
	"github.com/iconidentify/tokgrabba/internal/workspace"
	"github.com/iconidentify/tokgrabba/pkg/ffmpeg"
	"github.com/iconidentify/tokgrabba/pkg/ytdlp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tokgrabba %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := logging.New("info", "auto", os.Stdout)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting tokgrabba",
		"version", Version,
		"build_time", BuildTime,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Download root: stale working directories are crash residue
	root := workspace.New(cfg.Storage.DownloadDir, logger)
	if err := root.Prepare(); err != nil {
		return err
	}

	// External tools must be present before any link is accepted
	ytdlpClient, videoProc, err := preflight(cfg.Media, logger)
	if err != nil {
		return err
	}

	// Chat session
	session, err := discord.New(cfg.Bot.Token, logger)
	if err != nil {
		return err
	}

	// Initialize dependencies
	runRepo := repository.NewInMemoryRunRepository(repository.DefaultCapacity)
	dl := downloader.NewHTTPDownloader(cfg.Download)
	dl.SetLogger(logger)

	sup := supervisor.New(supervisor.Config{MaxConcurrent: cfg.Bot.MaxConcurrentRuns}, logger)

	// Initialize services
	pipeline := service.NewPipeline(
		root,
		service.NewClassifier(dl, cfg.Media.SlideshowMarker),
		service.NewSlideshowService(dl, session, cfg.Media, cfg.Timeouts, logger),
		service.NewVideoService(ytdlpClient, videoProc, session, cfg.Media, cfg.Timeouts, logger),
		service.NewSignaler(session, cfg.Markers, logger),
		runRepo,
		cfg.Media,
		cfg.Timeouts,
		logger,
	)
	dispatcher := service.NewDispatcher(cfg.Bot, session, pipeline, sup, cfg.Timeouts, session.SelfID, logger)
	session.OnMessage(dispatcher.Handle)

	// Ops HTTP server
	var srv *http.Server
	if cfg.Server.Enabled {
		if cfg.Server.APIKey == "" {
			logger.Warn("API_KEY is not set, /api/v1 is unauthenticated")
		}
		router := api.NewRouter(
			handler.NewHealthHandler(runRepo, root.Dir(), sup, Version),
			handler.NewRunHandler(runRepo),
			handler.NewUIHandler(),
			cfg.Server.APIKey,
			logger,
		)
		srv = &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		go func() {
			logger.Info("starting HTTP server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	if err := session.Open(); err != nil {
		return err
	}
	logger.Info("connected to chat", "user_id", session.SelfID())

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdown(cfg.Timeouts.Shutdown, session, srv, sup, logger)
	logger.Info("shutdown complete")
	return nil
}

func preflight(media config.MediaConfig, logger *slog.Logger) (*ytdlp.Client, *ffmpeg.VideoProcessor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ytdlpClient, err := ytdlp.NewClient(media.YtDlpRetries)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrToolMissing, err)
	}
	if v, err := ytdlpClient.Version(ctx); err != nil {
		logger.Warn("failed to read yt-dlp version", "error", err)
	} else {
		logger.Info("yt-dlp available", "version", v)
	}

	videoProc, err := ffmpeg.NewVideoProcessor()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrToolMissing, err)
	}
	if v, err := videoProc.Version(ctx); err != nil {
		logger.Warn("failed to read ffmpeg version", "error", err)
	} else {
		logger.Info("ffmpeg available", "version", v)
	}

	return ytdlpClient, videoProc, nil
}

func shutdown(timeout time.Duration, session *discord.Client, srv *http.Server, sup *supervisor.Supervisor, logger *slog.Logger) {
	// Stop receiving messages first so no new runs start
	if err := session.Close(); err != nil {
		logger.Error("chat session close error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}

	// In-flight runs see a cancelled context; their working directories are
	// removed as they unwind
	if err := sup.Stop(timeout); err != nil {
		logger.Error("supervisor shutdown error", "error", err)
	}
}
