package feed

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"movemovies/models"

	"github.com/google/uuid"
)

const (
	// windowBuffer is how many items around the active index a window carries.
	windowBuffer = 8

	// replenishThreshold triggers a background load when the active index gets
	// this close to the queue tail.
	replenishThreshold = 3

	// failsafeInterval re-checks the tail distance in case a background load
	// was lost to a transient failure.
	failsafeInterval = 5 * time.Second
)

var ErrIndexOutOfRange = errors.New("advance index out of range")

type queueBuilder interface {
	LoadMore(ctx context.Context) (models.FeedState, error)
	Reset(criteria models.FilterCriteria, language string)
	ContinueSearching() models.FeedState
	State() models.FeedState
	Len() int
	Slice(from, to int) []models.CatalogItem
	Criteria() models.FilterCriteria
	Language() string
}

type seenRecorder interface {
	MarkSeenBatch(items []models.CatalogItem) error
}

// Session renders the discover queue as a scrollable window and records
// every item the user scrolls past. One session exists per running instance;
// changing filters or language keeps the session but restarts its position.
type Session struct {
	builder queueBuilder
	ledger  seenRecorder

	mu            sync.Mutex
	sessionID     string
	activeIndex   int
	failsafe      *time.Timer
	failsafeAfter time.Duration
	closed        bool
}

// NewSession wraps a queue builder. Prime must be called before the first
// window is useful.
func NewSession(builder queueBuilder, ledger seenRecorder) *Session {
	return &Session{
		builder:       builder,
		ledger:        ledger,
		sessionID:     uuid.NewString(),
		failsafeAfter: failsafeInterval,
	}
}

// Prime performs the initial synchronous load so the first window has items.
func (s *Session) Prime(ctx context.Context) error {
	_, err := s.builder.LoadMore(ctx)
	return err
}

// Window returns the renderable slice around the active index. The terminal
// state rides along so clients can show the end-of-queue slot once the
// builder stops producing.
func (s *Session) Window() models.FeedWindow {
	s.mu.Lock()
	sessionID := s.sessionID
	active := s.activeIndex
	s.mu.Unlock()

	length := s.builder.Len()
	start := active - windowBuffer
	if start < 0 {
		start = 0
	}
	end := active + windowBuffer + 1
	if end > length {
		end = length
	}

	return models.FeedWindow{
		SessionID:   sessionID,
		ActiveIndex: active,
		WindowStart: start,
		Items:       s.builder.Slice(start, end),
		QueueLength: length,
		State:       s.builder.State(),
	}
}

// Advance reports that scrolling settled on a new index. Every item between
// the old position and the new one is recorded as seen in a single batch;
// moving backwards records nothing. A load kicks off in the background when
// the position closes in on the tail.
func (s *Session) Advance(ctx context.Context, index int) (models.FeedWindow, error) {
	// index may equal the queue length when the terminal slot is active.
	length := s.builder.Len()
	if index < 0 || index > length {
		return models.FeedWindow{}, ErrIndexOutOfRange
	}

	s.mu.Lock()
	previous := s.activeIndex
	if index > previous {
		s.activeIndex = index
	}
	s.mu.Unlock()

	if index > previous {
		crossed := s.builder.Slice(previous, index)
		if err := s.ledger.MarkSeenBatch(crossed); err != nil {
			log.Printf("[feed] failed to record seen batch: %v", err)
		}
	}

	s.maybeReplenish(ctx)
	return s.Window(), nil
}

// ContinueSearching lifts the page-budget throttle and resumes loading.
func (s *Session) ContinueSearching(ctx context.Context) models.FeedWindow {
	if s.builder.ContinueSearching() == models.FeedStateLoading {
		s.replenish(ctx)
	}
	return s.Window()
}

// ApplyCriteria replaces the filter criteria, restarting the queue and the
// scroll position. The display language carries over.
func (s *Session) ApplyCriteria(ctx context.Context, criteria models.FilterCriteria) models.FeedWindow {
	s.restart(func() { s.builder.Reset(criteria, s.builder.Language()) })
	s.replenish(ctx)
	return s.Window()
}

// ApplyLanguage rebuilds the queue for a new display language with the
// current criteria.
func (s *Session) ApplyLanguage(ctx context.Context, language string) models.FeedWindow {
	s.restart(func() { s.builder.Reset(s.builder.Criteria(), language) })
	s.replenish(ctx)
	return s.Window()
}

// Restart issues a brand-new session id and rebuilds the queue from scratch
// under the same criteria and language.
func (s *Session) Restart(ctx context.Context) models.FeedWindow {
	s.restart(func() { s.builder.Reset(s.builder.Criteria(), s.builder.Language()) })
	s.mu.Lock()
	s.sessionID = uuid.NewString()
	s.mu.Unlock()
	s.replenish(ctx)
	return s.Window()
}

// Close stops the failsafe timer. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopFailsafeLocked()
}

func (s *Session) restart(reset func()) {
	s.mu.Lock()
	s.activeIndex = 0
	s.stopFailsafeLocked()
	s.mu.Unlock()
	reset()
}

func (s *Session) stopFailsafeLocked() {
	if s.failsafe != nil {
		s.failsafe.Stop()
		s.failsafe = nil
	}
}

// maybeReplenish starts a background load when the remaining runway is at or
// below the threshold and the builder can still produce.
func (s *Session) maybeReplenish(ctx context.Context) {
	if s.builder.State() != models.FeedStateLoading {
		return
	}
	s.mu.Lock()
	runway := s.builder.Len() - s.activeIndex
	s.mu.Unlock()
	if runway > replenishThreshold {
		return
	}
	s.replenish(ctx)
}

// replenish loads in the background and arms a failsafe re-check so a failed
// or stale load cannot strand the feed short of items.
func (s *Session) replenish(ctx context.Context) {
	// The triggering request's context dies when its handler returns; the
	// load must outlive it.
	loadCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.builder.LoadMore(loadCtx); err != nil {
			log.Printf("[feed] background load failed: %v", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopFailsafeLocked()
	s.failsafe = time.AfterFunc(s.failsafeAfter, func() {
		s.maybeReplenish(loadCtx)
	})
}
