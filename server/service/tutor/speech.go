package tutor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/plugin/ai/cache"
	"github.com/hrygo/rod/plugin/ai/timeout"
	"github.com/hrygo/rod/plugin/audio"
	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/server/internal/observability"
)

const (
	// MaxSynthesisLength is the provider input limit in runes.
	MaxSynthesisLength = 4096
	// MaxUploadBytes bounds an uploaded recording.
	MaxUploadBytes = 25 << 20
)

// SpeechOptions configures the speech flows.
type SpeechOptions struct {
	// AudioDir receives synthesized files served under /audio.
	AudioDir string
	// TempDir holds uploads during transcription; os.TempDir when empty.
	TempDir string
	// MaxConcurrentSynthesis bounds in-flight synthesis calls.
	MaxConcurrentSynthesis int64
	// CacheTTL is how long a synthesized file is reused for identical text.
	CacheTTL time.Duration
}

// Speech implements transcription and synthesis on top of the speech collaborator.
type Speech struct {
	speech    ai.SpeechService
	converter audio.Converter
	cache     cache.CacheService
	slots     *semaphore.Weighted
	opts      SpeechOptions
}

// NewSpeech creates the speech flows. cache may be nil.
func NewSpeech(speech ai.SpeechService, converter audio.Converter, audioCache cache.CacheService, opts SpeechOptions) *Speech {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.MaxConcurrentSynthesis <= 0 {
		opts.MaxConcurrentSynthesis = 1
	}
	return &Speech{
		speech:    speech,
		converter: converter,
		cache:     audioCache,
		slots:     semaphore.NewWeighted(opts.MaxConcurrentSynthesis),
		opts:      opts,
	}
}

// Transcribe normalises an uploaded recording and returns its transcript. Both
// temporary files are removed on every path.
func (s *Speech) Transcribe(ctx context.Context, filename string, upload io.Reader) (string, error) {
	if !audio.IsSupported(filename) {
		return "", apperrors.UnsupportedMedia("unsupported audio format").WithContext("filename", filepath.Base(filename))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.TranscribeTimeout)
	defer cancel()

	id := shortuuid.New()
	srcPath := filepath.Join(s.opts.TempDir, "rod_upload_"+id+strings.ToLower(filepath.Ext(filename)))
	wavPath := filepath.Join(s.opts.TempDir, "rod_stt_"+id+".wav")
	defer audio.RemoveQuietly(ctx, srcPath)
	defer audio.RemoveQuietly(ctx, wavPath)

	if err := writeUpload(srcPath, upload); err != nil {
		return "", err
	}

	if err := s.converter.ToWAV(ctx, srcPath, wavPath); err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Timeout("audio conversion timed out", err)
		}
		return "", apperrors.Internal("failed to convert audio", err)
	}

	text, err := s.speech.Transcribe(ctx, wavPath)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Timeout("transcription timed out", err)
		}
		return "", apperrors.UpstreamFailed("failed to transcribe audio", err)
	}
	return text, nil
}

func writeUpload(path string, upload io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return apperrors.Internal("failed to store upload", err)
	}
	defer file.Close()

	n, err := io.Copy(file, io.LimitReader(upload, MaxUploadBytes+1))
	if err != nil {
		return apperrors.Internal("failed to store upload", err)
	}
	if n == 0 {
		return apperrors.InvalidArgument("audio file is empty")
	}
	if n > MaxUploadBytes {
		return apperrors.InvalidArgument("audio file is too large").WithContext("max_bytes", MaxUploadBytes)
	}
	return nil
}

// Synthesize renders text to an MP3 in AudioDir and returns its file name.
// Identical text reuses a cached file while it still exists.
func (s *Speech) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.InvalidArgument("text must not be empty")
	}
	if utf8.RuneCountInString(text) > MaxSynthesisLength {
		return "", apperrors.InvalidArgument("text is too long").WithContext("max_length", MaxSynthesisLength)
	}

	key := s.cacheKey(text)
	if name, ok := s.cached(ctx, key); ok {
		return name, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.SynthesizeTimeout)
	defer cancel()

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return "", apperrors.Timeout("speech synthesis is busy", err)
	}
	defer s.slots.Release(1)

	// A concurrent request may have produced the file while we waited.
	if name, ok := s.cached(ctx, key); ok {
		return name, nil
	}

	data, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Timeout("speech synthesis timed out", err)
		}
		return "", apperrors.UpstreamFailed("failed to synthesize speech", err)
	}

	name := uuid.New().String() + ".mp3"
	if err := writeFileAtomic(filepath.Join(s.opts.AudioDir, name), data); err != nil {
		return "", apperrors.Internal("failed to save audio", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(name), s.opts.CacheTTL); err != nil {
			observability.Logger(ctx).Warn("failed to cache synthesized audio", slog.String("error", err.Error()))
		}
	}
	return name, nil
}

func (s *Speech) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "tts:" + s.speech.Voice() + ":" + hex.EncodeToString(sum[:])
}

func (s *Speech) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	value, ok := s.cache.Get(ctx, key)
	if !ok {
		return "", false
	}
	name := string(value)
	if _, err := os.Stat(filepath.Join(s.opts.AudioDir, name)); err != nil {
		// The janitor removed it; synthesize again.
		_ = s.cache.Invalidate(ctx, key)
		return "", false
	}
	return name, true
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write audio")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to move audio into place")
	}
	return nil
}
