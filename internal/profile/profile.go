package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where rod stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// PublicURL is the externally reachable base url, used to build audio links.
	// Falls back to the request host when empty.
	PublicURL string
	// Timezone decides what "today" means for streaks.
	Timezone string

	// AI Configuration
	AIEnabled       bool          // ROD_AI_ENABLED
	AIOpenAIAPIKey  string        // ROD_AI_OPENAI_API_KEY
	AIOpenAIBaseURL string        // ROD_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIChatModel     string        // ROD_AI_CHAT_MODEL (default: gpt-4o-mini)
	AICriticModel   string        // ROD_AI_CRITIC_MODEL (default: gpt-4o-mini)
	AISTTModel      string        // ROD_AI_STT_MODEL (default: whisper-1)
	AITTSModel      string        // ROD_AI_TTS_MODEL (default: tts-1)
	AITTSVoice      string        // ROD_AI_TTS_VOICE (default: nova)
	AIReplyTimeout  time.Duration // ROD_AI_REPLY_TIMEOUT (default: 30s)
	AICritic        CriticProfile

	// Audio Configuration
	AudioDir          string        // ROD_AUDIO_DIR (default: <data>/audio)
	FFmpegPath        string        // ROD_FFMPEG_PATH (default: ffmpeg)
	AudioRetention    time.Duration // ROD_AUDIO_RETENTION (default: 24h)
	MaxSynthesisSlots int64         // ROD_MAX_SYNTHESIS (default: 3)

	// News Configuration
	NewsFeedURL         string        // ROD_NEWS_FEED_URL (default: NRK top stories)
	NewsRefreshInterval time.Duration // ROD_NEWS_REFRESH_INTERVAL (default: 1h)

	// Request Limits
	MaxMessageLength int     // ROD_MAX_MESSAGE_LENGTH (default: 2000)
	RateLimitRPS     float64 // ROD_RATE_LIMIT_RPS (default: 5)
	RateLimitBurst   int     // ROD_RATE_LIMIT_BURST (default: 10)
	// TrustedProxies are CIDR ranges allowed to set X-Forwarded-For.
	// Empty means the TCP peer is the client.
	TrustedProxies []string // ROD_TRUSTED_PROXIES (comma separated)
}

// CriticProfile configures the background grammar critique pool.
type CriticProfile struct {
	Workers   int           // ROD_CRITIC_WORKERS (default: 2)
	QueueSize int           // ROD_CRITIC_QUEUE_SIZE (default: 64)
	Timeout   time.Duration // ROD_CRITIC_TIMEOUT (default: 45s)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIOpenAIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("ignoring non-integer env value", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric env value", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration env value", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

// FromEnv loads configuration from ROD_* environment variables.
func (p *Profile) FromEnv() {
	p.PublicURL = strings.TrimRight(os.Getenv("ROD_PUBLIC_URL"), "/")
	p.Timezone = getEnvOrDefault("ROD_TIMEZONE", "Local")

	p.AIEnabled = os.Getenv("ROD_AI_ENABLED") == "true"
	p.AIOpenAIAPIKey = os.Getenv("ROD_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("ROD_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIChatModel = getEnvOrDefault("ROD_AI_CHAT_MODEL", "gpt-4o-mini")
	p.AICriticModel = getEnvOrDefault("ROD_AI_CRITIC_MODEL", "gpt-4o-mini")
	p.AISTTModel = getEnvOrDefault("ROD_AI_STT_MODEL", "whisper-1")
	p.AITTSModel = getEnvOrDefault("ROD_AI_TTS_MODEL", "tts-1")
	p.AITTSVoice = getEnvOrDefault("ROD_AI_TTS_VOICE", "nova")
	p.AIReplyTimeout = getDurationEnvOrDefault("ROD_AI_REPLY_TIMEOUT", 30*time.Second)
	p.AICritic = CriticProfile{
		Workers:   getIntEnvOrDefault("ROD_CRITIC_WORKERS", 2),
		QueueSize: getIntEnvOrDefault("ROD_CRITIC_QUEUE_SIZE", 64),
		Timeout:   getDurationEnvOrDefault("ROD_CRITIC_TIMEOUT", 45*time.Second),
	}

	p.AudioDir = os.Getenv("ROD_AUDIO_DIR")
	p.FFmpegPath = getEnvOrDefault("ROD_FFMPEG_PATH", "ffmpeg")
	p.AudioRetention = getDurationEnvOrDefault("ROD_AUDIO_RETENTION", 24*time.Hour)
	p.MaxSynthesisSlots = int64(getIntEnvOrDefault("ROD_MAX_SYNTHESIS", 3))

	p.NewsFeedURL = getEnvOrDefault("ROD_NEWS_FEED_URL", "https://www.nrk.no/toppsaker.rss")
	p.NewsRefreshInterval = getDurationEnvOrDefault("ROD_NEWS_REFRESH_INTERVAL", time.Hour)

	p.MaxMessageLength = getIntEnvOrDefault("ROD_MAX_MESSAGE_LENGTH", 2000)
	p.RateLimitRPS = getFloatEnvOrDefault("ROD_RATE_LIMIT_RPS", 5)
	p.RateLimitBurst = getIntEnvOrDefault("ROD_RATE_LIMIT_BURST", 10)
	p.TrustedProxies = nil
	for _, cidr := range strings.Split(os.Getenv("ROD_TRUSTED_PROXIES"), ",") {
		if cidr = strings.TrimSpace(cidr); cidr != "" {
			p.TrustedProxies = append(p.TrustedProxies, cidr)
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "rod")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/rod"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("rod_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.AudioDir == "" {
		p.AudioDir = filepath.Join(dataDir, "audio")
	}
	if err := os.MkdirAll(p.AudioDir, 0o755); err != nil {
		return errors.Wrapf(err, "unable to create audio folder %s", p.AudioDir)
	}

	if p.MaxMessageLength <= 0 {
		p.MaxMessageLength = 2000
	}
	if p.AICritic.Workers <= 0 {
		p.AICritic.Workers = 1
	}
	if p.AICritic.QueueSize <= 0 {
		p.AICritic.QueueSize = 1
	}
	if p.MaxSynthesisSlots <= 0 {
		p.MaxSynthesisSlots = 1
	}

	return nil
}
