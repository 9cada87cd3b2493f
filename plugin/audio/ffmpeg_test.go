package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"clip.m4a", true},
		{"clip.MP3", true},
		{"/tmp/a/b.wav", true},
		{"voice.Aac", true},
		{"voice.ogg", true},
		{"voice.flac", false},
		{"voice.webm", false},
		{"noext", false},
		{"mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.filename))
		})
	}
}

func TestNewFFmpegDefaults(t *testing.T) {
	f := NewFFmpeg(&Config{})
	assert.Equal(t, "ffmpeg", f.config.FFmpegPath)
	assert.Equal(t, 16000, f.config.SampleRate)
	assert.Equal(t, 1, f.config.Channels)

	assert.Equal(t, DefaultConfig(), NewFFmpeg(nil).config)
}

func TestToWAVRejectsUnsupported(t *testing.T) {
	f := NewFFmpeg(&Config{FFmpegPath: "/nonexistent/ffmpeg"})
	err := f.ToWAV(context.Background(), "speech.flac", filepath.Join(t.TempDir(), "out.wav"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestToWAVMissingBinary(t *testing.T) {
	f := NewFFmpeg(&Config{FFmpegPath: "/nonexistent/ffmpeg"})
	assert.False(t, f.IsAvailable())

	src := filepath.Join(t.TempDir(), "speech.m4a")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o600))
	err := f.ToWAV(context.Background(), src, filepath.Join(t.TempDir(), "out.wav"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestToWAV(t *testing.T) {
	f := NewFFmpeg(nil)
	if !f.IsAvailable() {
		t.Skip("ffmpeg not installed")
	}

	// 0.1s of silence as 8 kHz mono 16-bit PCM.
	src := filepath.Join(t.TempDir(), "speech.wav")
	require.NoError(t, os.WriteFile(src, silentWAV(8000, 800), 0o600))

	dst := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, f.ToWAV(context.Background(), src, dst))
	assert.FileExists(t, dst)
}

func TestRemoveQuietly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	RemoveQuietly(context.Background(), path)
	assert.NoFileExists(t, path)

	// Missing files and empty paths are ignored.
	RemoveQuietly(context.Background(), path)
	RemoveQuietly(context.Background(), "")
}

func silentWAV(sampleRate, samples int) []byte {
	dataLen := samples * 2
	le32 := func(v int) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
	le16 := func(v int) []byte { return []byte{byte(v), byte(v >> 8)} }

	var b []byte
	b = append(b, "RIFF"...)
	b = append(b, le32(36+dataLen)...)
	b = append(b, "WAVEfmt "...)
	b = append(b, le32(16)...)
	b = append(b, le16(1)...) // PCM
	b = append(b, le16(1)...) // mono
	b = append(b, le32(sampleRate)...)
	b = append(b, le32(sampleRate*2)...)
	b = append(b, le16(2)...)
	b = append(b, le16(16)...)
	b = append(b, "data"...)
	b = append(b, le32(dataLen)...)
	b = append(b, make([]byte, dataLen)...)
	return b
}
