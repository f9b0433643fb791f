package discover

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"movemovies/models"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

const (
	// DefaultBatchTarget is how many fresh items one LoadMore call tries to
	// accumulate before stopping.
	DefaultBatchTarget = 20

	// maxIterationsPerLoad bounds the sampling loop inside one LoadMore call
	// so restrictive filters cannot spin it indefinitely.
	maxIterationsPerLoad = 12

	// maxConsecutiveEmpty is how many empty rounds in a row trip the
	// throttle, letting the user decide whether to keep burning pages.
	maxConsecutiveEmpty = 5

	// pageBudgetStep is the per-epoch page-fetch allowance; ContinueSearching
	// raises the ceiling by one more step.
	pageBudgetStep = 30
)

type catalogClient interface {
	Discover(ctx context.Context, mediaType models.MediaType, page int, criteria models.FilterCriteria) (models.CatalogPage, error)
}

type seenLedger interface {
	IsSeen(id int64) bool
}

type userCollections interface {
	CollectedIDs() map[int64]struct{}
}

// pageCursor tracks the not-yet-fetched pages for one media type.
type pageCursor struct {
	pool   []int
	probed bool
}

// fill populates the pool with pages first..totalPages.
func (c *pageCursor) fill(first, totalPages int) {
	c.pool = c.pool[:0]
	for page := first; page <= totalPages; page++ {
		c.pool = append(c.pool, page)
	}
	c.probed = true
}

// sample removes and returns a uniformly random page from the pool.
func (c *pageCursor) sample(rng *rand.Rand) (int, bool) {
	if len(c.pool) == 0 {
		return 0, false
	}
	i := rng.Intn(len(c.pool))
	page := c.pool[i]
	c.pool[i] = c.pool[len(c.pool)-1]
	c.pool = c.pool[:len(c.pool)-1]
	return page, true
}

// Builder produces batches of not-yet-seen, not-yet-collected items matching
// the current filter criteria by sampling random discover pages without
// replacement. One builder serves one epoch at a time; Reset starts a new
// epoch and invalidates any in-flight work from the old one.
type Builder struct {
	client      catalogClient
	ledger      seenLedger
	collections userCollections

	mu           sync.Mutex
	epochID      string
	criteria     models.FilterCriteria
	language     string
	cursors      map[models.MediaType]*pageCursor
	queue        []models.CatalogItem
	queuedIDs    map[int64]struct{}
	pagesFetched int
	pageBudget   int
	emptyStreak  int
	state        models.FeedState
	loading      bool
	batchTarget  int
	rng          *rand.Rand
}

// NewBuilder creates a queue builder starting a fresh epoch with the given
// criteria and display language.
func NewBuilder(client catalogClient, ledger seenLedger, collections userCollections, criteria models.FilterCriteria, language string) *Builder {
	b := &Builder{
		client:      client,
		ledger:      ledger,
		collections: collections,
		batchTarget: DefaultBatchTarget,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	b.Reset(criteria, language)
	return b
}

// Reset starts a new epoch: the queue, page pools, probe flags, budget and
// empty-fetch counter are all cleared. Results from fetches still in flight
// for the previous epoch are discarded when they land.
func (b *Builder) Reset(criteria models.FilterCriteria, language string) {
	criteria.Normalize()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.epochID = uuid.NewString()
	b.criteria = criteria
	b.language = language
	b.cursors = make(map[models.MediaType]*pageCursor)
	for _, mediaType := range criteria.Type.MediaTypes() {
		b.cursors[mediaType] = &pageCursor{}
	}
	b.queue = nil
	b.queuedIDs = make(map[int64]struct{})
	b.pagesFetched = 0
	b.pageBudget = pageBudgetStep
	b.emptyStreak = 0
	b.state = models.FeedStateLoading
}

// EpochID identifies the current (criteria, language) epoch.
func (b *Builder) EpochID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epochID
}

// Criteria returns the epoch's normalized filter criteria.
func (b *Builder) Criteria() models.FilterCriteria {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.criteria
}

// Language returns the epoch's display language.
func (b *Builder) Language() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.language
}

// State returns the builder's terminal-slot state.
func (b *Builder) State() models.FeedState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Len returns the current queue length.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Slice returns a copy of queue[from:to], clamped to the queue bounds.
func (b *Builder) Slice(from, to int) []models.CatalogItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from < 0 {
		from = 0
	}
	if to > len(b.queue) {
		to = len(b.queue)
	}
	if from >= to {
		return nil
	}
	out := make([]models.CatalogItem, to-from)
	copy(out, b.queue[from:to])
	return out
}

// Item returns the queue entry at index, if present.
func (b *Builder) Item(index int) (models.CatalogItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.queue) {
		return models.CatalogItem{}, false
	}
	return b.queue[index], true
}

// ContinueSearching raises the session page budget by one step and returns
// the builder to sampling. A no-op unless the builder is throttled.
func (b *Builder) ContinueSearching() models.FeedState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != models.FeedStateThrottled {
		return b.state
	}
	b.pageBudget += pageBudgetStep
	b.emptyStreak = 0
	b.state = models.FeedStateLoading
	return b.state
}

// LoadMore samples pages until the batch target is reached or a terminal
// state applies. Concurrent calls collapse into one; a call made in a
// terminal state is a no-op. Individual fetch failures count as empty
// fetches and are not reported beyond the eventual state.
func (b *Builder) LoadMore(ctx context.Context) (models.FeedState, error) {
	b.mu.Lock()
	if b.loading || b.state != models.FeedStateLoading {
		state := b.state
		b.mu.Unlock()
		return state, nil
	}
	b.loading = true
	epoch := b.epochID
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.loading = false
		b.mu.Unlock()
	}()

	added, err := b.probe(ctx, epoch)
	if err != nil {
		return b.State(), err
	}

	for iteration := 0; iteration < maxIterationsPerLoad; iteration++ {
		if added >= b.batchTarget {
			break
		}

		picks, proceed := b.samplePicks(epoch)
		if !proceed {
			break
		}

		fresh := b.fetchRound(ctx, picks)
		n, ok := b.applyRound(epoch, fresh, len(picks))
		if !ok {
			break
		}
		added += n

		if err := ctx.Err(); err != nil {
			return b.State(), err
		}
	}

	return b.State(), nil
}

type pagePick struct {
	mediaType models.MediaType
	page      int
}

// probe issues the page-1 request per active media type to learn the total
// page count, seeds the pools with the remaining pages, and feeds the probe
// results through the same filter as any sampled page.
func (b *Builder) probe(ctx context.Context, epoch string) (int, error) {
	b.mu.Lock()
	var picks []pagePick
	for _, mediaType := range b.criteria.Type.MediaTypes() {
		cursor := b.cursors[mediaType]
		if cursor != nil && !cursor.probed {
			picks = append(picks, pagePick{mediaType: mediaType, page: 1})
		}
	}
	b.mu.Unlock()

	if len(picks) == 0 {
		return 0, nil
	}

	results := b.fetchPages(ctx, picks)

	b.mu.Lock()
	if b.epochID != epoch {
		b.mu.Unlock()
		return 0, nil
	}
	for i, pick := range picks {
		cursor := b.cursors[pick.mediaType]
		if cursor == nil {
			continue
		}
		if results[i].err != nil {
			// Left unprobed so the next load retries it. The attempt still
			// counts against the page budget.
			continue
		}
		cursor.fill(2, results[i].page.TotalPages)
	}
	b.pagesFetched += len(picks)
	b.mu.Unlock()

	fresh := roundItems(picks, results)
	added, _ := b.applyRound(epoch, fresh, len(picks))
	return added, ctx.Err()
}

// samplePicks draws one random page per active media type under the epoch's
// budget. The second return is false when the loop should stop, with the
// terminal state already set.
func (b *Builder) samplePicks(epoch string) ([]pagePick, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.epochID != epoch || b.state != models.FeedStateLoading {
		return nil, false
	}

	remaining := 0
	unprobed := 0
	for _, cursor := range b.cursors {
		if !cursor.probed {
			unprobed++
			continue
		}
		remaining += len(cursor.pool)
	}
	if remaining == 0 {
		// With a probe still outstanding the pools are unknown, not empty;
		// stay in loading so the next call retries the probe.
		if unprobed == 0 {
			b.state = models.FeedStateExhausted
		}
		return nil, false
	}

	if b.pagesFetched >= b.pageBudget {
		b.state = models.FeedStateThrottled
		return nil, false
	}

	// Fixed media-type order keeps the merge order deterministic.
	var picks []pagePick
	for _, mediaType := range b.criteria.Type.MediaTypes() {
		cursor := b.cursors[mediaType]
		if cursor == nil {
			continue
		}
		if page, ok := cursor.sample(b.rng); ok {
			picks = append(picks, pagePick{mediaType: mediaType, page: page})
		}
	}
	if len(picks) == 0 {
		b.state = models.FeedStateExhausted
		return nil, false
	}

	b.pagesFetched += len(picks)
	return picks, true
}

type fetchResult struct {
	page models.CatalogPage
	err  error
}

// fetchPages issues one round of page requests concurrently and returns the
// results in pick order (movies before series).
func (b *Builder) fetchPages(ctx context.Context, picks []pagePick) []fetchResult {
	b.mu.Lock()
	criteria := b.criteria
	b.mu.Unlock()

	results := make([]fetchResult, len(picks))
	var wg conc.WaitGroup
	for i, pick := range picks {
		i, pick := i, pick
		wg.Go(func() {
			page, err := b.client.Discover(ctx, pick.mediaType, pick.page, criteria)
			if err != nil {
				log.Printf("[discover] page fetch %s/%d failed: %v", pick.mediaType, pick.page, err)
			}
			results[i] = fetchResult{page: page, err: err}
		})
	}
	wg.Wait()
	return results
}

func roundItems(picks []pagePick, results []fetchResult) []models.CatalogItem {
	var items []models.CatalogItem
	for i := range picks {
		if results[i].err != nil {
			continue
		}
		items = append(items, results[i].page.Items...)
	}
	return items
}

func (b *Builder) fetchRound(ctx context.Context, picks []pagePick) []models.CatalogItem {
	results := b.fetchPages(ctx, picks)
	return roundItems(picks, results)
}

// applyRound filters a round's merged items against the ledger, the user
// collections and the queue itself, shuffles the survivors and appends them.
// Returns false when the round's results were discarded (stale epoch) or a
// terminal state was reached.
func (b *Builder) applyRound(epoch string, items []models.CatalogItem, pagesInRound int) (int, bool) {
	collected := b.collections.CollectedIDs()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.epochID != epoch {
		return 0, false
	}

	survivors := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if _, ok := b.queuedIDs[item.ID]; ok {
			continue
		}
		if b.ledger.IsSeen(item.ID) {
			continue
		}
		if _, ok := collected[item.ID]; ok {
			continue
		}
		b.queuedIDs[item.ID] = struct{}{}
		survivors = append(survivors, item)
	}

	b.rng.Shuffle(len(survivors), func(i, j int) {
		survivors[i], survivors[j] = survivors[j], survivors[i]
	})
	b.queue = append(b.queue, survivors...)

	if len(survivors) == 0 && pagesInRound > 0 {
		b.emptyStreak++
		if b.emptyStreak >= maxConsecutiveEmpty && b.state == models.FeedStateLoading {
			b.state = models.FeedStateThrottled
			return 0, false
		}
	} else if len(survivors) > 0 {
		b.emptyStreak = 0
	}

	return len(survivors), true
}
