package ytdlp

import (
	"os"
	"os/exec"
	"runtime"
)

var commonFFmpegPaths = map[string][]string{
	"darwin": {
		"/opt/homebrew/bin/ffmpeg",
		"/usr/local/bin/ffmpeg",
		"/opt/local/bin/ffmpeg",
	},
	"linux": {
		"/usr/bin/ffmpeg",
		"/usr/local/bin/ffmpeg",
		"/opt/ffmpeg/bin/ffmpeg",
	},
	"windows": {
		`C:\ffmpeg\bin\ffmpeg.exe`,
		`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
	},
}

// FindFFmpeg resolves the ffmpeg binary: FFMPEG_PATH env override first,
// then PATH lookup, then common per-OS install locations. Empty when not
// found; yt-dlp then relies on its own discovery.
func FindFFmpeg() string {
	if path := os.Getenv("FFMPEG_PATH"); path != "" {
		return path
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path
	}

	for _, candidate := range commonFFmpegPaths[runtime.GOOS] {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	return ""
}

// VerifyFFmpeg reports whether a resolved ffmpeg binary actually runs.
func VerifyFFmpeg(path string) bool {
	if path == "" {
		return false
	}
	return exec.Command(path, "-version").Run() == nil
}
