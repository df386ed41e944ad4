package ytdlp

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunegrab/internal/domain/conversion"
)

func newTestRunner(ffmpegPath string) *Runner {
	logger := logrus.New()
	logger.SetOutput(&strings.Builder{})
	return NewRunner("yt-dlp", ffmpegPath, 100<<20, logger)
}

func TestBuildArgs(t *testing.T) {
	r := newTestRunner("")
	args := r.BuildArgs("https://youtu.be/abc", "/tmp/out.mp3", conversion.Options{
		AudioFormat:  "mp3",
		AudioQuality: "0",
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-x")
	assert.Contains(t, joined, "--audio-format mp3")
	assert.Contains(t, joined, "--audio-quality 0")
	assert.Contains(t, joined, "-o /tmp/out.mp3")
	assert.Contains(t, joined, "--no-playlist")
	assert.Contains(t, joined, "--force-overwrites")
	assert.Contains(t, joined, "--newline")
	assert.NotContains(t, joined, "--ffmpeg-location")

	// Source URL is always the final argument.
	assert.Equal(t, "https://youtu.be/abc", args[len(args)-1])
}

func TestBuildArgsWithFFmpegLocation(t *testing.T) {
	r := newTestRunner("/usr/bin/ffmpeg")
	args := r.BuildArgs("https://youtu.be/abc", "/tmp/out.opus", conversion.Options{
		AudioFormat:  "opus",
		AudioQuality: "5",
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--ffmpeg-location /usr/bin/ffmpeg")
	assert.Contains(t, joined, "--audio-format opus")
}

func TestBuildArgsDeterministic(t *testing.T) {
	r := newTestRunner("")
	opts := conversion.Options{AudioFormat: "mp3", AudioQuality: "0"}

	first := r.BuildArgs("https://youtu.be/abc", "/tmp/out.mp3", opts)
	second := r.BuildArgs("https://youtu.be/abc", "/tmp/out.mp3", opts)
	assert.Equal(t, first, second)
}

func TestBoundedBufferCapsWrites(t *testing.T) {
	buf := newBoundedBuffer(10)

	n, err := buf.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 16, n, "writer must not report short writes")
	assert.Equal(t, "0123456789", buf.String())

	n, err = buf.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "0123456789", buf.String())
}

func TestBoundedBufferUnderCap(t *testing.T) {
	buf := newBoundedBuffer(100)
	_, err := buf.Write([]byte("short"))
	require.NoError(t, err)
	assert.Equal(t, "short", buf.String())
}
