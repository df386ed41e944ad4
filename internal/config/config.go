package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the server.
type Config struct {
	ServerAddr string
	TempDir    string
	LogLevel   string

	MaxFileSize int64

	CacheTTL           time.Duration
	CacheSweepInterval time.Duration

	CleanupMaxAge   time.Duration
	CleanupInterval time.Duration

	ConvertRateMax     int
	ConvertRateWindow  time.Duration
	DownloadRateMax    int
	DownloadRateWindow time.Duration

	YtDlpPath  string
	FFmpegPath string
}

// Load reads environment variables and returns normalized runtime config.
func Load() Config {
	return Config{
		ServerAddr: getEnv("SERVER_ADDR", ":4000"),
		TempDir:    getEnv("TEMP_DIR", "./temp"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		MaxFileSize: int64(getEnvInt("MAX_FILE_SIZE_MB", 100)) << 20,

		CacheTTL:           getEnvDuration("CACHE_TTL", time.Hour),
		CacheSweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute),

		CleanupMaxAge:   getEnvDuration("FILE_MAX_AGE", time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute),

		ConvertRateMax:     getEnvInt("RATE_LIMIT_MAX_REQUESTS", 10),
		ConvertRateWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		DownloadRateMax:    getEnvInt("DOWNLOAD_RATE_LIMIT_MAX_REQUESTS", 20),
		DownloadRateWindow: getEnvDuration("DOWNLOAD_RATE_LIMIT_WINDOW", time.Minute),

		YtDlpPath:  getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath: strings.TrimSpace(os.Getenv("FFMPEG_PATH")),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	out, err := time.ParseDuration(value)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}
