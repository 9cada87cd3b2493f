package ai

import (
	"errors"

	"github.com/hrygo/rod/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM    LLMConfig
	Critic LLMConfig
	Speech SpeechConfig
}

// LLMConfig represents chat completion configuration.
type LLMConfig struct {
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.7
	JSONMode    bool    // request a json_object response format
}

// SpeechConfig represents speech-to-text and text-to-speech configuration.
type SpeechConfig struct {
	APIKey   string
	BaseURL  string
	STTModel string // whisper-1
	TTSModel string // tts-1
	Voice    string // nova
	Language string // ISO-639-1 hint passed to transcription
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	cfg.LLM = LLMConfig{
		Model:       p.AIChatModel,
		APIKey:      p.AIOpenAIAPIKey,
		BaseURL:     p.AIOpenAIBaseURL,
		MaxTokens:   1024,
		Temperature: 0.7,
	}

	// The critic must be deterministic and machine-readable.
	cfg.Critic = LLMConfig{
		Model:       p.AICriticModel,
		APIKey:      p.AIOpenAIAPIKey,
		BaseURL:     p.AIOpenAIBaseURL,
		MaxTokens:   512,
		Temperature: 0,
		JSONMode:    true,
	}

	cfg.Speech = SpeechConfig{
		APIKey:   p.AIOpenAIAPIKey,
		BaseURL:  p.AIOpenAIBaseURL,
		STTModel: p.AISTTModel,
		TTSModel: p.AITTSModel,
		Voice:    p.AITTSVoice,
		Language: "no",
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	if c.Critic.Model == "" {
		return errors.New("critic model is required")
	}

	if c.Speech.STTModel == "" || c.Speech.TTSModel == "" {
		return errors.New("speech models are required")
	}

	return nil
}

