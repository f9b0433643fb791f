package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"movemovies/models"

	"github.com/sourcegraph/conc/pool"
)

// ExpirationDays is how long a seen/skip record stays authoritative before
// the item becomes eligible for the discover feed again.
const ExpirationDays = 30

var ErrStorageDirRequired = errors.New("storage directory not provided")

// detailFetcher is the slice of the catalog client the ledger needs to
// refresh entry metadata after a display-language change.
type detailFetcher interface {
	Details(ctx context.Context, mediaType models.MediaType, id int64, lang string) (models.CatalogDetail, error)
}

// Service is the seen/skip ledger: the authoritative record of items the
// user has already been shown. The id set is the membership test, the entry
// list the history projection; both always contain exactly the same ids and
// every mutation is flushed to disk before the in-memory state commits.
type Service struct {
	mu          sync.RWMutex
	idsPath     string
	entriesPath string
	ids         map[int64]struct{}
	entries     []models.LedgerEntry
	now         func() time.Time
}

// NewService creates a ledger persisting into the provided directory.
// Entries older than the expiration window are purged during load.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	svc := &Service{
		idsPath:     filepath.Join(storageDir, "seen_ids.json"),
		entriesPath: filepath.Join(storageDir, "seen_history.json"),
		ids:         make(map[int64]struct{}),
		now:         time.Now,
	}
	svc.load()
	return svc, nil
}

// IsSeen reports whether the item id is in the ledger.
func (s *Service) IsSeen(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the number of ledger entries.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns a snapshot of every id in the ledger.
func (s *Service) IDs() map[int64]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// Entries returns the history projection, most recently skipped first.
func (s *Service) Entries() []models.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SkippedAt > out[j].SkippedAt })
	return out
}

// MarkSeen records one item. Idempotent: an id already present is a no-op.
func (s *Service) MarkSeen(item models.CatalogItem) error {
	return s.MarkSeenBatch([]models.CatalogItem{item})
}

// MarkSeenBatch records a batch of items as one persisted write. Ids already
// present are skipped, so the id set never gains duplicates.
func (s *Service) MarkSeenBatch(items []models.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMillis := s.now().UnixMilli()
	appended := make([]models.LedgerEntry, 0, len(items))
	batch := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := s.ids[item.ID]; ok {
			continue
		}
		if _, ok := batch[item.ID]; ok {
			continue
		}
		batch[item.ID] = struct{}{}
		appended = append(appended, models.LedgerEntry{Item: item, SkippedAt: nowMillis})
	}
	if len(appended) == 0 {
		return nil
	}

	entries := append(append([]models.LedgerEntry{}, s.entries...), appended...)
	if err := s.persist(entries); err != nil {
		return err
	}

	s.entries = entries
	for id := range batch {
		s.ids[id] = struct{}{}
	}
	return nil
}

// PurgeExpired removes entries older than the expiration window and
// persists the trimmed state. Safe to call at any time.
func (s *Service) PurgeExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.filterExpired(s.entries)
	if len(kept) == len(s.entries) {
		return nil
	}
	if err := s.persist(kept); err != nil {
		return err
	}
	s.commit(kept)
	return nil
}

// Reset clears all ledger state, for an explicit user-triggered session
// reset.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := []models.LedgerEntry{}
	if err := s.persist(empty); err != nil {
		return err
	}
	s.commit(empty)
	return nil
}

// RefreshLanguage re-fetches entry metadata so history renders in the new
// display language. Individual fetch failures keep the stale entry.
func (s *Service) RefreshLanguage(ctx context.Context, fetcher detailFetcher) error {
	s.mu.RLock()
	snapshot := make([]models.LedgerEntry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil
	}

	refreshed := make([]models.LedgerEntry, len(snapshot))
	p := pool.New().WithMaxGoroutines(4)
	for i, entry := range snapshot {
		p.Go(func() {
			refreshed[i] = entry
			detail, err := fetcher.Details(ctx, entry.Item.MediaType, entry.Item.ID, "")
			if err != nil {
				return
			}
			refreshed[i].Item = detail.CatalogItem
		})
	}
	p.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries marked seen while the refresh ran keep their fresh state.
	byID := make(map[int64]models.LedgerEntry, len(refreshed))
	for _, entry := range refreshed {
		byID[entry.Item.ID] = entry
	}
	merged := make([]models.LedgerEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if updated, ok := byID[entry.Item.ID]; ok {
			merged = append(merged, updated)
		} else {
			merged = append(merged, entry)
		}
	}
	if err := s.persist(merged); err != nil {
		return err
	}
	s.entries = merged
	return nil
}

// filterExpired drops entries past the expiration window, assigning the
// current timestamp to legacy entries that predate timestamping.
func (s *Service) filterExpired(entries []models.LedgerEntry) []models.LedgerEntry {
	nowMillis := s.now().UnixMilli()
	expiration := int64(ExpirationDays) * 24 * int64(time.Hour/time.Millisecond)

	kept := make([]models.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.SkippedAt == 0 {
			entry.SkippedAt = nowMillis
		}
		if nowMillis-entry.SkippedAt < expiration {
			kept = append(kept, entry)
		}
	}
	return kept
}

// commit replaces the in-memory state, rebuilding the id set from the entry
// list so the two representations cannot drift.
func (s *Service) commit(entries []models.LedgerEntry) {
	s.entries = entries
	s.ids = make(map[int64]struct{}, len(entries))
	for _, entry := range entries {
		s.ids[entry.Item.ID] = struct{}{}
	}
}

// load reads both persisted records. Corrupted JSON falls back to an empty
// ledger rather than failing startup; the entry list is the source of truth
// and the id set is rebuilt from it.
func (s *Service) load() {
	var entries []models.LedgerEntry
	data, err := os.ReadFile(s.entriesPath)
	if err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Printf("[ledger] corrupted history record, starting empty: %v", err)
			entries = nil
		}
	}

	kept := s.filterExpired(entries)
	s.commit(kept)

	if len(kept) != len(entries) {
		if err := s.persist(kept); err != nil {
			log.Printf("[ledger] failed to persist purged history: %v", err)
		}
	}
}

// persist writes both records atomically (tmp file, fsync, rename). The id
// record is derived from the entry list at write time, so a crash between
// the two writes can at worst lose the latest batch, never desynchronize
// the representations on the next load.
func (s *Service) persist(entries []models.LedgerEntry) error {
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Item.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := writeJSONFile(s.entriesPath, entries); err != nil {
		return fmt.Errorf("persist ledger history: %w", err)
	}
	if err := writeJSONFile(s.idsPath, ids); err != nil {
		return fmt.Errorf("persist ledger ids: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
