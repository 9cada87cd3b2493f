package tutor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hrygo/rod/store"
	teststore "github.com/hrygo/rod/store/test"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return teststore.NewTestingStore(context.Background(), t)
}

func ptr[T any](v T) *T {
	return &v
}

// fixedClock returns a clock pinned to the given date at noon UTC.
func fixedClock(date string) func() time.Time {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return day.Add(12 * time.Hour) }
}

// recordingScheduler captures jobs without running them.
type recordingScheduler struct {
	mu   sync.Mutex
	jobs []*Critique
	drop bool
}

func (s *recordingScheduler) Enqueue(job *Critique) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drop {
		return false
	}
	s.jobs = append(s.jobs, job)
	return true
}

func (s *recordingScheduler) Jobs() []*Critique {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Critique(nil), s.jobs...)
}

// inlineScheduler runs the critic synchronously after the reply is persisted,
// standing in for the background pool.
type inlineScheduler struct {
	critic *Critic
}

func (s *inlineScheduler) Enqueue(job *Critique) bool {
	_, _ = s.critic.Critique(context.Background(), job)
	return true
}
