package ai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// SpeechService converts between speech and text.
type SpeechService interface {
	// Transcribe returns the text spoken in the audio file at path.
	Transcribe(ctx context.Context, path string) (string, error)

	// Synthesize returns MP3 audio of text being read aloud.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Voice identifies the synthesis voice, used to key caches.
	Voice() string
}

type speechService struct {
	client   *openai.Client
	sttModel string
	ttsModel string
	voice    string
	language string
}

// NewSpeechService creates a SpeechService backed by an OpenAI-compatible endpoint.
func NewSpeechService(cfg *SpeechConfig) (SpeechService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("speech config is required")
	}
	if cfg.STTModel == "" || cfg.TTSModel == "" {
		return nil, fmt.Errorf("speech models are required")
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceNova)
	}

	return &speechService{
		client:   newClient(cfg.APIKey, cfg.BaseURL),
		sttModel: cfg.STTModel,
		ttsModel: cfg.TTSModel,
		voice:    voice,
		language: cfg.Language,
	}, nil
}

func (s *speechService) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.sttModel,
		FilePath: path,
		Language: s.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *speechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty synthesized audio")
	}
	return audio, nil
}

func (s *speechService) Voice() string {
	return s.voice
}
