package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	appconv "tunegrab/internal/application/conversion"
	"tunegrab/internal/cache"
	"tunegrab/internal/config"
	conversiondomain "tunegrab/internal/domain/conversion"
	"tunegrab/internal/infrastructure/filesystem"
	"tunegrab/internal/infrastructure/ytdlp"
	httptransport "tunegrab/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	store := filesystem.NewStore(cfg.TempDir)
	if err := store.EnsureDirs(); err != nil {
		logger.Fatalf("storage init failed: %v", err)
	}

	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = ytdlp.FindFFmpeg()
	}
	ffmpegOK := ytdlp.VerifyFFmpeg(ffmpegPath)
	if !ffmpegOK {
		logger.Warn("ffmpeg not found, audio extraction may fail")
	}

	ctx := context.Background()

	metadataCache := cache.New[string, conversiondomain.Metadata](cfg.CacheTTL)
	metadataCache.StartSweeper(ctx, cfg.CacheSweepInterval)
	store.StartCleanup(ctx, cfg.CleanupInterval, cfg.CleanupMaxAge, logger)

	runner := ytdlp.NewRunner(cfg.YtDlpPath, ffmpegPath, cfg.MaxFileSize, logger)
	conversionService := appconv.NewService(runner, store, metadataCache, logger)

	handler := httptransport.NewHandler(conversionService, store, cfg.MaxFileSize, ffmpegPath, ffmpegOK, logger)
	convertLimiter := httptransport.NewRateLimiter(cfg.ConvertRateMax, cfg.ConvertRateWindow)
	downloadLimiter := httptransport.NewRateLimiter(cfg.DownloadRateMax, cfg.DownloadRateWindow)
	router := httptransport.NewRouter(handler, convertLimiter, downloadLimiter, logger)

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return strings.HasPrefix(origin, "chrome-extension://") || strings.Contains(origin, "localhost")
		},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
	})

	logger.WithFields(logrus.Fields{"addr": cfg.ServerAddr, "tempDir": cfg.TempDir}).Info("server started")
	logger.Fatal(http.ListenAndServe(cfg.ServerAddr, c.Handler(router)))
}
