package timeout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "kort", Truncate("kort"))

	long := strings.Repeat("æ", MaxTruncateLength+5)
	got := Truncate(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, MaxTruncateLength+3, len([]rune(got)))
}

func TestTimeoutOrdering(t *testing.T) {
	assert.Greater(t, CritiqueTimeout, ReplyTimeout, "critique runs off the request path and may take longer")
	assert.Greater(t, TranscribeTimeout, SynthesizeTimeout)
}
