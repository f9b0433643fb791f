package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"movemovies/models"
)

type stubBuilder struct {
	mu       sync.Mutex
	items    []models.CatalogItem
	state    models.FeedState
	loads    int
	loadAdds []models.CatalogItem
	resets   int
	criteria models.FilterCriteria
	language string

	// block, when set, holds LoadMore until closed.
	block chan struct{}
	// exhaustAfter flips the state to exhausted once that many loads ran.
	exhaustAfter int
	ctxErrs      []error
}

func (b *stubBuilder) LoadMore(ctx context.Context) (models.FeedState, error) {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	b.items = append(b.items, b.loadAdds...)
	b.loadAdds = nil
	if b.exhaustAfter > 0 && b.loads >= b.exhaustAfter {
		b.state = models.FeedStateExhausted
	}
	return b.state, nil
}

func (b *stubBuilder) Reset(criteria models.FilterCriteria, language string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
	b.items = nil
	b.criteria = criteria
	b.language = language
	b.state = models.FeedStateLoading
}

func (b *stubBuilder) ContinueSearching() models.FeedState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == models.FeedStateThrottled {
		b.state = models.FeedStateLoading
	}
	return b.state
}

func (b *stubBuilder) State() models.FeedState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *stubBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *stubBuilder) Slice(from, to int) []models.CatalogItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	if from < 0 {
		from = 0
	}
	if to > len(b.items) {
		to = len(b.items)
	}
	if from >= to {
		return nil
	}
	out := make([]models.CatalogItem, to-from)
	copy(out, b.items[from:to])
	return out
}

func (b *stubBuilder) Criteria() models.FilterCriteria { return b.criteria }
func (b *stubBuilder) Language() string                { return b.language }

func (b *stubBuilder) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

type stubRecorder struct {
	mu      sync.Mutex
	batches [][]models.CatalogItem
}

func (r *stubRecorder) MarkSeenBatch(items []models.CatalogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := make([]models.CatalogItem, len(items))
	copy(batch, items)
	r.batches = append(r.batches, batch)
	return nil
}

func queueOf(n int) []models.CatalogItem {
	items := make([]models.CatalogItem, n)
	for i := range items {
		items[i] = models.CatalogItem{ID: int64(i + 1), MediaType: models.MediaTypeMovie}
	}
	return items
}

func TestWindowClampsAroundActiveIndex(t *testing.T) {
	builder := &stubBuilder{items: queueOf(30), state: models.FeedStateLoading}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	w := s.Window()
	if w.WindowStart != 0 {
		t.Fatalf("expected window start 0, got %d", w.WindowStart)
	}
	if len(w.Items) != windowBuffer+1 {
		t.Fatalf("expected %d items at queue head, got %d", windowBuffer+1, len(w.Items))
	}
	if w.QueueLength != 30 {
		t.Fatalf("expected queue length 30, got %d", w.QueueLength)
	}
	if w.SessionID == "" {
		t.Fatal("expected a session id")
	}
}

func TestAdvanceMarksCrossedItemsAsOneBatch(t *testing.T) {
	builder := &stubBuilder{items: queueOf(30), state: models.FeedStateLoading}
	recorder := &stubRecorder{}
	s := NewSession(builder, recorder)
	defer s.Close()

	w, err := s.Advance(context.Background(), 3)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if w.ActiveIndex != 3 {
		t.Fatalf("expected active index 3, got %d", w.ActiveIndex)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(recorder.batches))
	}
	batch := recorder.batches[0]
	if len(batch) != 3 {
		t.Fatalf("expected 3 crossed items, got %d", len(batch))
	}
	for i, want := range []int64{1, 2, 3} {
		if batch[i].ID != want {
			t.Fatalf("batch position %d: got id %d, want %d", i, batch[i].ID, want)
		}
	}
}

func TestAdvanceBackwardsMarksNothing(t *testing.T) {
	builder := &stubBuilder{items: queueOf(30), state: models.FeedStateLoading}
	recorder := &stubRecorder{}
	s := NewSession(builder, recorder)
	defer s.Close()

	if _, err := s.Advance(context.Background(), 5); err != nil {
		t.Fatalf("advance forward: %v", err)
	}
	w, err := s.Advance(context.Background(), 2)
	if err != nil {
		t.Fatalf("advance backward: %v", err)
	}
	if w.ActiveIndex != 5 {
		t.Fatalf("backward advance must not move the position, got %d", w.ActiveIndex)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.batches) != 1 {
		t.Fatalf("expected only the forward batch, got %d batches", len(recorder.batches))
	}
}

func TestAdvanceRejectsOutOfRangeIndex(t *testing.T) {
	builder := &stubBuilder{items: queueOf(5), state: models.FeedStateLoading}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	if _, err := s.Advance(context.Background(), -1); err == nil {
		t.Fatal("expected error for negative index")
	}
	if _, err := s.Advance(context.Background(), 7); err == nil {
		t.Fatal("expected error for index past terminal slot")
	}
	// The terminal slot itself is a valid position.
	if _, err := s.Advance(context.Background(), 5); err != nil {
		t.Fatalf("terminal slot advance: %v", err)
	}
}

func TestAdvanceNearTailTriggersBackgroundLoad(t *testing.T) {
	builder := &stubBuilder{
		items:    queueOf(10),
		state:    models.FeedStateLoading,
		loadAdds: queueOf(0),
	}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	if _, err := s.Advance(context.Background(), 8); err != nil {
		t.Fatalf("advance: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for builder.loadCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a background load near the tail")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBackgroundLoadOutlivesCallerContext(t *testing.T) {
	builder := &stubBuilder{
		items: queueOf(10),
		state: models.FeedStateLoading,
		block: make(chan struct{}),
	}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.Advance(ctx, 8); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// The caller's context dies before the load gets to run, as it does when
	// an HTTP handler returns.
	cancel()
	close(builder.block)

	deadline := time.Now().Add(time.Second)
	for builder.loadCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a background load")
		}
		time.Sleep(5 * time.Millisecond)
	}

	builder.mu.Lock()
	err := builder.ctxErrs[0]
	builder.mu.Unlock()
	if err != nil {
		t.Fatalf("background load ran on a dead context: %v", err)
	}
}

func TestFailsafeRetriesAStrandedTail(t *testing.T) {
	// The first load adds nothing, so the position stays parked near the
	// tail; only the failsafe timer can force the retry.
	builder := &stubBuilder{
		items:        queueOf(4),
		state:        models.FeedStateLoading,
		exhaustAfter: 2,
	}
	s := NewSession(builder, &stubRecorder{})
	s.failsafeAfter = 10 * time.Millisecond
	defer s.Close()

	if _, err := s.Advance(context.Background(), 3); err != nil {
		t.Fatalf("advance: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for builder.loadCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a failsafe retry, got %d loads", builder.loadCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The retry exhausted the builder, so the rearmed timer must go quiet.
	time.Sleep(50 * time.Millisecond)
	if got := builder.loadCount(); got != 2 {
		t.Fatalf("expected exactly one failsafe retry, got %d loads", got)
	}
}

func TestCloseStopsFailsafe(t *testing.T) {
	builder := &stubBuilder{items: queueOf(4), state: models.FeedStateLoading}
	s := NewSession(builder, &stubRecorder{})
	s.failsafeAfter = 50 * time.Millisecond

	if _, err := s.Advance(context.Background(), 3); err != nil {
		t.Fatalf("advance: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for builder.loadCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the immediate background load")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Close()
	time.Sleep(150 * time.Millisecond)
	if got := builder.loadCount(); got != 1 {
		t.Fatalf("expected no loads after close, got %d", got)
	}
}

func TestAdvanceFarFromTailDoesNotLoad(t *testing.T) {
	builder := &stubBuilder{items: queueOf(30), state: models.FeedStateLoading}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	if _, err := s.Advance(context.Background(), 2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if builder.loadCount() != 0 {
		t.Fatalf("expected no load far from the tail, got %d", builder.loadCount())
	}
}

func TestApplyCriteriaRestartsPositionAndKeepsLanguage(t *testing.T) {
	builder := &stubBuilder{items: queueOf(10), state: models.FeedStateLoading, language: "it-IT"}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	if _, err := s.Advance(context.Background(), 4); err != nil {
		t.Fatalf("advance: %v", err)
	}

	criteria := models.DefaultFilterCriteria()
	criteria.Type = models.ContentTypeSeries
	w := s.ApplyCriteria(context.Background(), criteria)

	if w.ActiveIndex != 0 {
		t.Fatalf("expected position restart, got index %d", w.ActiveIndex)
	}
	if builder.resets != 1 {
		t.Fatalf("expected one builder reset, got %d", builder.resets)
	}
	if builder.criteria.Type != models.ContentTypeSeries {
		t.Fatalf("expected new criteria applied, got %q", builder.criteria.Type)
	}
	if builder.language != "it-IT" {
		t.Fatalf("expected language to carry over, got %q", builder.language)
	}
}

func TestRestartIssuesNewSessionID(t *testing.T) {
	builder := &stubBuilder{items: queueOf(10), state: models.FeedStateLoading}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	before := s.Window().SessionID
	w := s.Restart(context.Background())
	if w.SessionID == before {
		t.Fatal("expected a fresh session id after restart")
	}
	if w.ActiveIndex != 0 {
		t.Fatalf("expected position restart, got index %d", w.ActiveIndex)
	}
}

func TestContinueSearchingResumesThrottledBuilder(t *testing.T) {
	builder := &stubBuilder{items: queueOf(3), state: models.FeedStateThrottled}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	w := s.ContinueSearching(context.Background())
	if w.State != models.FeedStateLoading {
		t.Fatalf("expected loading after continue, got %q", w.State)
	}

	deadline := time.Now().Add(time.Second)
	for builder.loadCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a load after continue searching")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWindowCarriesTerminalState(t *testing.T) {
	builder := &stubBuilder{items: queueOf(2), state: models.FeedStateExhausted}
	s := NewSession(builder, &stubRecorder{})
	defer s.Close()

	w := s.Window()
	if w.State != models.FeedStateExhausted {
		t.Fatalf("expected exhausted state in window, got %q", w.State)
	}
}
