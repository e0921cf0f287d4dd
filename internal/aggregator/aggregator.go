package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/newspulse/newspulse/internal/categorize"
	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/scoring"
	"github.com/newspulse/newspulse/internal/utils"
)

// Options bounds one fetch call. Zero values fall back to the
// defaults below.
type Options struct {
	// Groups enables source groups; nil enables every group.
	Groups        map[models.SourceGroup]bool
	MaxPerSource  int
	MaxWorkers    int
	SourceTimeout time.Duration
	Timeout       time.Duration
}

const (
	defaultMaxPerSource  = 20
	defaultMaxWorkers    = 5
	defaultSourceTimeout = 15 * time.Second
	defaultTimeout       = 60 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxPerSource <= 0 {
		o.MaxPerSource = defaultMaxPerSource
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = defaultMaxWorkers
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = defaultSourceTimeout
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// Aggregator fans out over the configured sources with bounded
// concurrency. A slow or failing source contributes zero items;
// partial results are the norm.
type Aggregator struct {
	sources []Source
}

func New(sources []Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Fetch pulls from every enabled source in parallel and returns the
// flattened results in completion order. Per-source failures are
// logged and swallowed; no cross-source dedup happens here, that is
// the store's job on persist.
func (a *Aggregator) Fetch(ctx context.Context, opts Options) []models.RawItem {
	opts = opts.withDefaults()
	log := logger.Get()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	enabled := a.enabledSources(opts.Groups)
	if len(enabled) == 0 {
		return nil
	}

	start := time.Now()
	sem := make(chan struct{}, opts.MaxWorkers)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		items []models.RawItem
	)

	// Snapshots the merged results under the mutex; stragglers may
	// still be appending when the deadline path gives up on them.
	snapshot := func() []models.RawItem {
		mu.Lock()
		defer mu.Unlock()
		out := make([]models.RawItem, len(items))
		copy(out, items)
		return out
	}

	scheduled := true
	for _, src := range enabled {
		select {
		case <-ctx.Done():
			scheduled = false
		case sem <- struct{}{}:
		}
		if !scheduled {
			break
		}

		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			defer func() { <-sem }()

			srcCtx, srcCancel := context.WithTimeout(ctx, opts.SourceTimeout)
			defer srcCancel()

			fetched, err := src.Fetch(srcCtx, opts.MaxPerSource)
			if err != nil {
				// One source failing never fails the call.
				log.Warn().
					Err(err).
					Str("source", src.Name()).
					Msg("Source fetch failed, contributing zero items")
				return
			}

			mu.Lock()
			items = append(items, fetched...)
			mu.Unlock()
		}(src)
	}

	// An adapter that ignores cancellation must not hold the call past
	// its deadline, so the wait itself is bounded by the same context.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		out := snapshot()
		log.Warn().
			Int("sources", len(enabled)).
			Int("items", len(out)).
			Bool("all_scheduled", scheduled).
			Dur("duration", time.Since(start)).
			Msg("Fetch deadline reached, returning partial results")
		return out
	}

	out := snapshot()
	log.Info().
		Int("sources", len(enabled)).
		Int("items", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Fetched from all sources")
	return out
}

// FetchAsync is the suspension-based calling convention: it returns
// immediately with a channel that yields the same result Fetch would.
func (a *Aggregator) FetchAsync(ctx context.Context, opts Options) <-chan []models.RawItem {
	out := make(chan []models.RawItem, 1)
	go func() {
		defer close(out)
		out <- a.Fetch(ctx, opts)
	}()
	return out
}

// FetchScored runs the full ingest pipeline: fetch raw items, then
// enrich each with category, language, keywords and controversy score.
func (a *Aggregator) FetchScored(ctx context.Context, opts Options) []models.NewsItem {
	opts = opts.withDefaults()
	raw := a.Fetch(ctx, opts)
	return Enrich(raw, opts.MaxWorkers)
}

// Enrich turns raw items into persistable NewsItems, preserving order.
func Enrich(raw []models.RawItem, workers int) []models.NewsItem {
	results := scoring.ScoreBatch(raw, workers)

	items := make([]models.NewsItem, len(raw))
	for i, r := range raw {
		text := r.Title + " " + r.Summary
		lang := r.Language
		if lang == "" {
			lang = utils.DetectLanguage(text)
		}
		items[i] = models.NewsItem{
			Title:       r.Title,
			Summary:     r.Summary,
			FullText:    r.FullText,
			URL:         r.URL,
			Source:      r.Source,
			Category:    categorize.CategorizeItem(r),
			Language:    lang,
			PublishedAt: r.PublishedAt,
			Keywords:    utils.ExtractKeywords(text, 10),
			Score:       results[i].Score,
			Label:       results[i].Label,
			Breakdown:   results[i].Breakdown,
		}
	}
	return items
}

func (a *Aggregator) enabledSources(groups map[models.SourceGroup]bool) []Source {
	if groups == nil {
		return a.sources
	}
	var enabled []Source
	for _, src := range a.sources {
		if groups[src.Group()] {
			enabled = append(enabled, src)
		}
	}
	return enabled
}
