// Package pipeline drives code discovery for every registered game:
// gate, fetch, filter, extract, store, notify, advance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"code_tracker/internal/extractor"
	"code_tracker/internal/filter"
	"code_tracker/internal/model"
	"code_tracker/internal/storage"
)

// ErrPersistence wraps storage errors that abort a game's run.
var ErrPersistence = errors.New("persistence failure")

// Catalog lists the games to scan and the phrase that marks a candidate post.
type Catalog interface {
	Games() []model.GameConfig
	TriggerPhrase() string
}

// FeedSource returns the entries of one source. ok is false when the source
// could not be read this cycle.
type FeedSource interface {
	Items(ctx context.Context, sourceID string) (items []model.RawFeedItem, ok bool)
}

// Notifier announces a newly stored code.
type Notifier interface {
	Notify(game model.GameConfig, key string)
}

// Metrics receives run statistics.
type Metrics interface {
	RecordRun(game, state string, d time.Duration)
	RecordFetchFailure(game string)
	RecordExtraction(game, outcome string)
	RecordCodeStored(game string)
	RecordDuplicate(game string)
}

// Result summarises one game's run.
type Result struct {
	Game  string
	State State
	Found int
	Err   error
}

// Pipeline runs discovery passes. Passes never overlap.
type Pipeline struct {
	catalog   Catalog
	store     storage.Storage
	source    FeedSource
	extractor extractor.Extractor
	notifier  Notifier
	metrics   Metrics
	log       *slog.Logger
	now       func() time.Time

	mu sync.Mutex
}

// New creates a Pipeline.
func New(catalog Catalog, store storage.Storage, source FeedSource, ext extractor.Extractor, notifier Notifier, log *slog.Logger) *Pipeline {
	return &Pipeline{
		catalog:   catalog,
		store:     store,
		source:    source,
		extractor: ext,
		notifier:  notifier,
		metrics:   nopMetrics{},
		log:       log,
		now:       time.Now,
	}
}

// SetMetrics installs a metrics sink.
func (p *Pipeline) SetMetrics(m Metrics) {
	p.metrics = m
}

// RunAll scans every game in catalog order. A failing game does not stop the others.
func (p *Pipeline) RunAll(ctx context.Context) []Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	games := p.catalog.Games()
	results := make([]Result, 0, len(games))
	for _, game := range games {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.run(ctx, game))
	}
	return results
}

// RunGame scans a single game, waiting for any pass in progress.
func (p *Pipeline) RunGame(ctx context.Context, game model.GameConfig) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run(ctx, game)
}

func (p *Pipeline) run(ctx context.Context, game model.GameConfig) Result {
	log := p.log.With("game", game.ID)
	start := p.now()

	res := p.scan(ctx, game, log)
	res.Game = game.ID

	var elapsed time.Duration
	if res.State != Gated {
		elapsed = p.now().Sub(start)
	}
	p.metrics.RecordRun(game.ID, res.State.String(), elapsed)

	switch res.State {
	case Failed:
		log.Error("run failed", "error", res.Err)
	case Gated:
		log.Debug("run gated")
	default:
		log.Info("run completed", "found", res.Found, "duration", elapsed)
	}
	return res
}

func (p *Pipeline) scan(ctx context.Context, game model.GameConfig, log *slog.Logger) Result {
	now := p.now()
	last, err := p.store.Checkpoint(ctx, game.ID)
	if err != nil {
		return Result{State: Failed, Err: fmt.Errorf("%w: read checkpoint: %w", ErrPersistence, err)}
	}
	if !ShouldRun(last, now) {
		return Result{State: Gated}
	}

	found := 0
	for _, sourceID := range game.SourceIDs {
		if err := ctx.Err(); err != nil {
			return Result{State: Failed, Found: found, Err: err}
		}
		items, ok := p.source.Items(ctx, sourceID)
		if !ok {
			p.metrics.RecordFetchFailure(game.ID)
			continue
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return Result{State: Failed, Found: found, Err: err}
			}
			stored, err := p.process(ctx, game, item, last, log)
			if err != nil {
				return Result{State: Failed, Found: found, Err: err}
			}
			if stored {
				found++
			}
		}
	}

	if found > 0 {
		if err := p.store.AdvanceCheckpoint(ctx, game.ID, now); err != nil {
			return Result{State: Failed, Found: found, Err: fmt.Errorf("%w: advance checkpoint: %w", ErrPersistence, err)}
		}
	}
	return Result{State: Completed, Found: found}
}

// process handles a single feed entry and reports whether a new code was stored.
// Only storage errors are returned.
func (p *Pipeline) process(ctx context.Context, game model.GameConfig, item model.RawFeedItem, checkpoint time.Time, log *slog.Logger) (bool, error) {
	published := filter.NormalizeTimestamp(item.PublishedAt)
	if !filter.IsNew(published, checkpoint) {
		return false, nil
	}
	text := filter.PlainText(item.Description)
	if !filter.IsEligible(text, p.catalog.TriggerPhrase()) {
		return false, nil
	}

	code, err := p.extractor.Extract(ctx, text)
	if err != nil {
		kind := extractor.KindOf(err)
		if kind == "" {
			kind = extractor.KindTransport
		}
		p.metrics.RecordExtraction(game.ID, string(kind))
		log.Warn("extraction failed", "url", item.Link, "kind", kind, "error", err)
		return false, nil
	}
	if code.Key == "" {
		p.metrics.RecordExtraction(game.ID, "empty")
		log.Debug("no code in post", "url", item.Link)
		return false, nil
	}
	p.metrics.RecordExtraction(game.ID, "ok")

	discovered, err := model.ParseTime(published)
	if err != nil {
		discovered = model.Sentinel()
	}
	rec := &model.CodeRecord{
		Key:          code.Key,
		Reward:       code.Reward,
		DiscoveredAt: discovered,
		URL:          item.Link,
		Start:        code.Start,
		End:          code.End,
	}
	inserted, err := p.store.InsertCode(ctx, game.ID, rec)
	if err != nil {
		return false, fmt.Errorf("%w: insert code: %w", ErrPersistence, err)
	}
	if !inserted {
		p.metrics.RecordDuplicate(game.ID)
		log.Info("duplicate code skipped", "key", code.Key, "url", item.Link)
		return false, nil
	}

	p.metrics.RecordCodeStored(game.ID)
	log.Info("new code stored", "key", code.Key, "reward", code.Reward, "url", item.Link)
	p.notifier.Notify(game, code.Key)
	return true, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, string, time.Duration) {}
func (nopMetrics) RecordFetchFailure(string)               {}
func (nopMetrics) RecordExtraction(string, string)         {}
func (nopMetrics) RecordCodeStored(string)                 {}
func (nopMetrics) RecordDuplicate(string)                  {}
