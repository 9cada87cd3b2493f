// Package media provides a background runner that refreshes the news feed
// used as conversation topics.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/plugin/ai/timeout"
	"github.com/hrygo/rod/plugin/news"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/server/service/tutor"
	"github.com/hrygo/rod/store"
)

// DefaultLevel is assigned when classification fails or is out of range.
const DefaultLevel = tutor.LevelB1

// Classifiable levels. A1 is never assigned to real news.
var classifiable = map[tutor.Level]bool{
	tutor.LevelA2: true,
	tutor.LevelB1: true,
	tutor.LevelB2: true,
	tutor.LevelC1: true,
}

const classifyPrompt = `Du vurderer hvor vanskelig en norsk nyhetstekst er for en som lærer norsk.
Svar KUN med ett av disse nivåene: A2, B1, B2, C1. Ingen forklaring.`

// Store is the subset of store operations the runner needs.
type Store interface {
	ListMediaItems(ctx context.Context, find *store.FindMediaItem) ([]*store.MediaItem, error)
	CreateMediaItem(ctx context.Context, create *store.MediaItem) (*store.MediaItem, error)
}

// Fetcher supplies cleaned feed entries.
type Fetcher interface {
	Fetch(ctx context.Context) ([]*news.Article, error)
}

// Runner periodically fetches the feed, classifies new articles and stores them.
type Runner struct {
	store    Store
	fetcher  Fetcher
	llm      ai.LLMService
	metrics  *observability.Metrics
	interval time.Duration
}

// NewRunner creates a new media runner. llm and metrics may be nil; without an
// LLM every article is stored at DefaultLevel.
func NewRunner(store Store, fetcher Fetcher, llm ai.LLMService, metrics *observability.Metrics, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{
		store:    store,
		fetcher:  fetcher,
		llm:      llm,
		metrics:  metrics,
		interval: interval,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	slog.Info("media runner started", "interval", r.interval)

	// Refresh once on startup
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-ctx.Done():
			slog.Info("media runner stopped")
			return
		}
	}
}

// RunOnce refreshes the feed once and returns the number of stored articles.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	return r.process(ctx)
}

func (r *Runner) refresh(ctx context.Context) {
	stored, err := r.process(ctx)
	if err != nil {
		slog.Error("news refresh failed", "error", err)
		return
	}
	if stored > 0 {
		slog.Info("news refresh completed", "stored", stored)
	}
}

func (r *Runner) process(ctx context.Context) (stored int, err error) {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.Observe(observability.OpNewsFetch, time.Since(start), err)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, timeout.NewsFetchTimeout)
	articles, err := r.fetcher.Fetch(fetchCtx)
	cancel()
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch feed")
	}

	for _, article := range articles {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		link := article.Link
		existing, err := r.store.ListMediaItems(ctx, &store.FindMediaItem{Link: &link})
		if err != nil {
			return stored, errors.Wrapf(err, "failed to look up article %s", link)
		}
		if len(existing) > 0 {
			continue
		}

		_, err = r.store.CreateMediaItem(ctx, &store.MediaItem{
			Title:    article.Title,
			Summary:  article.Summary,
			Link:     article.Link,
			ImageURL: article.ImageURL,
			Level:    string(r.classify(ctx, article)),
			Source:   article.Source,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return stored, errors.Wrapf(err, "failed to store article %s", link)
		}
		stored++
	}
	return stored, nil
}

// classify asks the LLM for the article difficulty; any failure yields DefaultLevel.
func (r *Runner) classify(ctx context.Context, article *news.Article) tutor.Level {
	if r.llm == nil {
		return DefaultLevel
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.NewsClassifyTimeout)
	defer cancel()

	text := fmt.Sprintf("Tittel: %s\n\n%s", article.Title, article.Summary)
	out, err := r.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(classifyPrompt),
		ai.UserMessage(timeout.Truncate(text)),
	})
	if err != nil {
		slog.Warn("news classification failed", "link", article.Link, "error", err)
		return DefaultLevel
	}
	return ParseClassification(out)
}

// ParseClassification extracts a classifiable level from model output.
func ParseClassification(out string) tutor.Level {
	fields := strings.FieldsFunc(strings.ToUpper(out), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	for _, field := range fields {
		if level := tutor.Level(field); classifiable[level] {
			return level
		}
	}
	return DefaultLevel
}
