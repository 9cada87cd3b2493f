// Package audio validates uploaded speech recordings and normalises them for
// transcription using ffmpeg.
package audio

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SupportedExtensions are the upload container formats accepted for transcription.
var SupportedExtensions = []string{
	".m4a",
	".mp3",
	".wav",
	".aac",
	".ogg",
}

// ErrUnsupportedFormat is returned for uploads outside SupportedExtensions.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Config holds the converter configuration
type Config struct {
	// FFmpegPath is the path to the ffmpeg executable
	FFmpegPath string
	// SampleRate of the normalised output in Hz
	SampleRate int
	// Channels of the normalised output
	Channels int
}

// DefaultConfig returns the default converter configuration: 16 kHz mono.
func DefaultConfig() *Config {
	return &Config{
		FFmpegPath: "ffmpeg",
		SampleRate: 16000,
		Channels:   1,
	}
}

// Converter turns an uploaded recording into a WAV file suitable for speech-to-text.
type Converter interface {
	// ToWAV writes a normalised copy of src to dst.
	ToWAV(ctx context.Context, src, dst string) error
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	config *Config
}

var _ Converter = (*FFmpeg)(nil)

// NewFFmpeg creates a new ffmpeg converter
func NewFFmpeg(config *Config) *FFmpeg {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	return &FFmpeg{config: config}
}

// IsSupported reports whether filename has an accepted audio extension (case-insensitive).
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ToWAV resamples src into a WAV file at dst, overwriting dst.
func (f *FFmpeg) ToWAV(ctx context.Context, src, dst string) error {
	if !IsSupported(src) {
		return errors.Wrapf(ErrUnsupportedFormat, "file %s", filepath.Base(src))
	}

	args := []string{
		"-y",
		"-i", src,
		"-vn",
		"-ar", strconv.Itoa(f.config.SampleRate),
		"-ac", strconv.Itoa(f.config.Channels),
		"-f", "wav",
		dst,
	}

	cmd := exec.CommandContext(ctx, f.config.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Warn("ffmpeg command failed", "error", err, "stderr", tail(stderr.String(), 512))
		return errors.Wrap(err, "ffmpeg command failed")
	}

	info, err := os.Stat(dst)
	if err != nil {
		return errors.Wrap(err, "ffmpeg produced no output")
	}
	if info.Size() == 0 {
		return errors.New("ffmpeg produced empty output")
	}
	return nil
}

// IsAvailable checks if the ffmpeg binary can be found
func (f *FFmpeg) IsAvailable() bool {
	_, err := exec.LookPath(f.config.FFmpegPath)
	return err == nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// RemoveQuietly deletes path, logging but otherwise ignoring failures.
func RemoveQuietly(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "failed to remove temporary audio file", "path", path, "error", err)
	}
}
