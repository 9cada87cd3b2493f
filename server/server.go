// Package server assembles the HTTP API and background runners.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/rod/internal/profile"
	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/plugin/ai/cache"
	"github.com/hrygo/rod/plugin/ai/timeout"
	"github.com/hrygo/rod/plugin/audio"
	"github.com/hrygo/rod/plugin/news"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/server/middleware"
	apiv1 "github.com/hrygo/rod/server/router/api/v1"
	audiorunner "github.com/hrygo/rod/server/runner/audio"
	"github.com/hrygo/rod/server/runner/critique"
	"github.com/hrygo/rod/server/runner/media"
	"github.com/hrygo/rod/server/service/tutor"
	"github.com/hrygo/rod/server/timezone"
	"github.com/hrygo/rod/store"
)

// offlineFinding keeps the critic silent when no provider is configured.
const offlineFinding = `{"has_error": false, "correction": "", "explanation": ""}`

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Metrics *observability.Metrics

	echoServer *echo.Echo
	critiques  *critique.Runner
	media      *media.Runner
	janitor    *audiorunner.Janitor
	audioCache *cache.Service
}

type collaborators struct {
	llm        ai.LLMService
	critic     ai.LLMService
	classifier ai.LLMService
	speech     ai.SpeechService
}

func newCollaborators(p *profile.Profile) (*collaborators, error) {
	if !p.IsAIEnabled() {
		slog.Warn("AI provider not configured, using offline collaborators")
		return &collaborators{
			llm:    &ai.MockLLMService{},
			critic: ai.NewMockLLMService(offlineFinding),
			speech: &ai.MockSpeechService{Err: errors.New("speech provider is not configured")},
		}, nil
	}

	cfg := ai.NewConfigFromProfile(p)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI config")
	}
	llm, err := ai.NewLLMService(&cfg.LLM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reply llm")
	}
	critic, err := ai.NewLLMService(&cfg.Critic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create critic llm")
	}
	classifierConfig := cfg.LLM
	classifierConfig.Temperature = 0
	classifierConfig.MaxTokens = 8
	classifier, err := ai.NewLLMService(&classifierConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create classifier llm")
	}
	speech, err := ai.NewSpeechService(&cfg.Speech)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create speech service")
	}
	return &collaborators{llm: llm, critic: critic, classifier: classifier, speech: speech}, nil
}

// NewServer wires every component against an already migrated store.
func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
		Metrics: observability.NewMetrics(),
	}

	collab, err := newCollaborators(profile)
	if err != nil {
		return nil, err
	}
	if s.echoServer, err = newEcho(profile); err != nil {
		return nil, err
	}

	location, err := timezone.ParseTimezone(profile.Timezone)
	if err != nil {
		slog.Warn("falling back to UTC for streaks", "timezone", profile.Timezone, "error", err)
	}

	s.critiques = critique.NewRunner(tutor.NewCritic(store, collab.critic), s.Metrics, critique.Config{
		Workers:      profile.AICritic.Workers,
		QueueSize:    profile.AICritic.QueueSize,
		Timeout:      profile.AICritic.Timeout,
		DrainTimeout: timeout.ShutdownTimeout,
	})
	tutorService := tutor.NewService(store, collab.llm, s.critiques, tutor.Options{
		MaxMessageLength: profile.MaxMessageLength,
		ReplyTimeout:     profile.AIReplyTimeout,
		Location:         location,
	})

	converter := audio.NewFFmpeg(&audio.Config{FFmpegPath: profile.FFmpegPath})
	if !converter.IsAvailable() {
		slog.Warn("ffmpeg not found, transcription will fail", "path", profile.FFmpegPath)
	}
	s.audioCache = cache.NewService(cache.DefaultServiceConfig())
	speech := tutor.NewSpeech(collab.speech, converter, s.audioCache, tutor.SpeechOptions{
		AudioDir:               profile.AudioDir,
		MaxConcurrentSynthesis: profile.MaxSynthesisSlots,
		CacheTTL:               profile.AudioRetention / 2,
	})

	if profile.NewsFeedURL != "" {
		fetcher := news.NewFetcher(news.Config{
			URL:    profile.NewsFeedURL,
			Client: &http.Client{Timeout: timeout.NewsFetchTimeout},
		})
		s.media = media.NewRunner(store, fetcher, collab.classifier, s.Metrics, profile.NewsRefreshInterval)
	}
	s.janitor = audiorunner.NewJanitor(audiorunner.Config{
		Dir:       profile.AudioDir,
		Retention: profile.AudioRetention,
	})

	api := apiv1.NewAPIV1Service(profile, tutorService, speech, store, s.Metrics)
	api.RegisterRoutes(s.echoServer.Group("",
		middleware.RateLimit(middleware.NewRateLimiter(profile.RateLimitRPS, profile.RateLimitBurst), s.Metrics),
	))
	return s, nil
}

func newEcho(profile *profile.Profile) (*echo.Echo, error) {
	extractor, err := middleware.ClientIPExtractor(profile.TrustedProxies)
	if err != nil {
		return nil, err
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = profile.IsDev()
	e.IPExtractor = extractor
	e.HTTPErrorHandler = errorHandler
	e.Use(
		echomw.Recover(),
		echomw.RequestID(),
		middleware.RequestContext(slog.Default()),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		}),
	)
	return e, nil
}

// errorHandler renders router errors (404, 405, body limits) in the API's
// {"error": msg} shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, message := http.StatusInternalServerError, "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		observability.Logger(c.Request().Context()).Error("unhandled error", "error", err)
	}
	if err := c.JSON(code, map[string]string{"error": message}); err != nil {
		slog.Warn("failed to write error response", "error", err)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Run serves HTTP and runs the background runners until ctx is done or the
// listener fails. The critique pool is drained after the HTTP server stops so
// turns accepted during shutdown still get their critique.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	runnerCtx, cancelRunners := context.WithCancel(context.Background())
	defer cancelRunners()

	g.Go(func() error {
		s.critiques.Run(runnerCtx)
		return nil
	})
	if s.media != nil {
		g.Go(func() error {
			s.media.Run(gctx)
			return nil
		})
	}
	s.janitor.Start(gctx)

	address := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	g.Go(func() error {
		slog.Info("rod server started", "address", address, "mode", s.Profile.Mode, "version", s.Profile.Version)
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed to start server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()
		cancelRunners()
		return nil
	})
	return g.Wait()
}

// Shutdown stops accepting requests and releases background resources.
// Run calls it on cancellation; calling it twice is harmless.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	s.janitor.Stop()
	s.audioCache.Close()
	slog.Info("rod server stopped", "took", time.Since(start))
}
