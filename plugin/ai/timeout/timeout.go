// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

// AI operation timeout constants.
const (
	// ReplyTimeout is the default budget for generating a tutor reply.
	ReplyTimeout = 30 * time.Second

	// CritiqueTimeout is the default budget for one background grammar check.
	CritiqueTimeout = 45 * time.Second

	// TranscribeTimeout covers audio normalisation plus speech-to-text.
	TranscribeTimeout = 60 * time.Second

	// SynthesizeTimeout is the timeout for text-to-speech.
	SynthesizeTimeout = 30 * time.Second

	// NewsClassifyTimeout is the timeout for grading one news article.
	NewsClassifyTimeout = 20 * time.Second

	// NewsFetchTimeout is the timeout for downloading the news feed.
	NewsFetchTimeout = 15 * time.Second

	// ShutdownTimeout bounds draining of background work on exit.
	ShutdownTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)

// Truncate shortens s to MaxTruncateLength runes for logging.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTruncateLength {
		return s
	}
	return string(runes[:MaxTruncateLength]) + "..."
}
