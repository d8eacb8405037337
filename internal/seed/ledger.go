// Package seed tracks narrative seeds planted by chapters and their
// later resolution, enforcing referential integrity across the story.
package seed

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

// Planted is a ledger entry for a seed awaiting payoff.
type Planted struct {
	Seed         model.Seed
	ChapterID    string
	ChapterOrder int
}

// Resolved is a ledger entry for a paid-off seed.
type Resolved struct {
	Resolution   model.SeedResolution
	ChapterID    string
	ChapterOrder int
}

// Ledger is the append-only seed log for one story. Entries are indexed
// by seed id with a secondary ordering by chapter order, so dangling
// and duplicate checks never scan full history.
type Ledger struct {
	mu       sync.RWMutex
	storyID  string
	planted  map[string]Planted
	resolved map[string]Resolved
	logger   *slog.Logger
}

func NewLedger(storyID string) *Ledger {
	return &Ledger{
		storyID:  storyID,
		planted:  make(map[string]Planted),
		resolved: make(map[string]Resolved),
		logger:   slog.Default().With("component", "seed_ledger", "story_id", storyID),
	}
}

// RecordPlanted appends seeds planted by a chapter.
func (l *Ledger) RecordPlanted(chapterID string, chapterOrder int, seeds []model.Seed) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range seeds {
		l.planted[s.ID] = Planted{Seed: s, ChapterID: chapterID, ChapterOrder: chapterOrder}
	}

	l.logger.Debug("seeds planted",
		"chapter_id", chapterID,
		"chapter_order", chapterOrder,
		"count", len(seeds))
}

// RecordResolved validates and appends a chapter's seed resolutions.
// Each resolution must reference a seed planted by a strictly earlier
// chapter and not already resolved. On any violation nothing is
// recorded; the caller treats the chapter's generation as failed.
func (l *Ledger) RecordResolved(chapterID string, chapterOrder int, resolutions []model.SeedResolution) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validate everything before mutating: all-or-nothing per call.
	seen := make(map[string]bool, len(resolutions))
	for _, r := range resolutions {
		planted, ok := l.planted[r.SeedID]
		if !ok || planted.ChapterOrder >= chapterOrder {
			l.logger.Warn("dangling seed reference",
				"chapter_id", chapterID,
				"chapter_order", chapterOrder,
				"seed_id", r.SeedID)
			return &core.SeedReferenceError{SeedID: r.SeedID, ChapterID: chapterID}
		}
		if _, dup := l.resolved[r.SeedID]; dup || seen[r.SeedID] {
			l.logger.Warn("duplicate seed resolution",
				"chapter_id", chapterID,
				"seed_id", r.SeedID)
			return &core.SeedReferenceError{SeedID: r.SeedID, ChapterID: chapterID, Duplicate: true}
		}
		seen[r.SeedID] = true
	}

	for _, r := range resolutions {
		l.resolved[r.SeedID] = Resolved{Resolution: r, ChapterID: chapterID, ChapterOrder: chapterOrder}
	}

	l.logger.Debug("seeds resolved",
		"chapter_id", chapterID,
		"chapter_order", chapterOrder,
		"count", len(resolutions))
	return nil
}

// Unresolved returns seeds planted before the given chapter order that
// have no resolution yet, oldest first. The context builder feeds these
// into chapter prompts to bias future generations toward payoff.
func (l *Ledger) Unresolved(beforeOrder int) []Planted {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Planted
	for id, p := range l.planted {
		if p.ChapterOrder >= beforeOrder {
			continue
		}
		if _, ok := l.resolved[id]; ok {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChapterOrder != out[j].ChapterOrder {
			return out[i].ChapterOrder < out[j].ChapterOrder
		}
		return out[i].Seed.ID < out[j].Seed.ID
	})
	return out
}

// Resolution returns the recorded resolution for a seed, if any.
func (l *Ledger) Resolution(seedID string) (Resolved, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.resolved[seedID]
	return r, ok
}

// Rehydrate rebuilds ledger state from persisted chapters, in order.
// Used when a pipeline run resumes against an existing story.
func Rehydrate(storyID string, chapters []*model.Chapter) (*Ledger, error) {
	l := NewLedger(storyID)
	sorted := make([]*model.Chapter, len(chapters))
	copy(sorted, chapters)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })

	for _, ch := range sorted {
		l.RecordPlanted(ch.ID, ch.OrderIndex, ch.SeedsPlanted)
		if err := l.RecordResolved(ch.ID, ch.OrderIndex, ch.SeedsResolved); err != nil {
			return nil, err
		}
	}
	return l, nil
}
