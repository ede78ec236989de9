package parks

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/parkmap/internal/collection"
	"github.com/sells-group/parkmap/internal/fetcher"
	"github.com/sells-group/parkmap/internal/model"
)

// Stats summarizes a harvest run.
type Stats struct {
	ListingPages    int   `json:"listing_pages"`
	Parks           int   `json:"parks"`
	Features        int   `json:"features"`
	SkippedRecords  int   `json:"skipped_records"`
	ParksWithoutMap int   `json:"parks_without_map"`
	Fetches         int64 `json:"fetches"`
	CacheHits       int64 `json:"cache_hits"`
}

// StatsSource reports cache and network counters.
type StatsSource interface {
	Stats() fetcher.CacheStats
}

// Harvester drives the listing walk and builds every park in order.
type Harvester struct {
	walker  *Walker
	builder *Builder
	counts  StatsSource
	style   model.Style
	log     *zap.Logger
}

// NewHarvester wires a harvest run. counts may be nil.
func NewHarvester(walker *Walker, builder *Builder, counts StatsSource, style model.Style) *Harvester {
	return &Harvester{
		walker:  walker,
		builder: builder,
		counts:  counts,
		style:   style,
		log:     zap.L().With(zap.String("component", "harvester")),
	}
}

// Run harvests all listing pages sequentially. Each listing page is fully
// processed before the next is fetched. Features are ordered by listing page,
// then link order, then map-layer order. Any fetch failure aborts the run.
func (h *Harvester) Run(ctx context.Context) (*model.FeatureCollection, Stats, error) {
	var (
		stats    Stats
		features []model.Feature
	)

	err := h.walker.Walk(ctx, func(page int, links []string) error {
		stats.ListingPages++
		for _, link := range links {
			res, err := h.builder.Build(ctx, link)
			if err != nil {
				return err
			}
			stats.Parks++
			stats.SkippedRecords += res.Skipped
			if !res.HasMap {
				stats.ParksWithoutMap++
			}
			features = append(features, res.Features...)
		}
		h.log.Debug("listing page harvested", zap.Int("page", page), zap.Int("features", len(features)))
		return nil
	})
	stats.Features = len(features)
	if h.counts != nil {
		cs := h.counts.Stats()
		stats.Fetches, stats.CacheHits = cs.Fetches, cs.Hits
	}
	if err != nil {
		return nil, stats, err
	}

	h.log.Info("harvest complete",
		zap.Int("listing_pages", stats.ListingPages),
		zap.Int("parks", stats.Parks),
		zap.Int("features", stats.Features),
		zap.Int("skipped_records", stats.SkippedRecords),
		zap.Int("parks_without_map", stats.ParksWithoutMap),
		zap.Int64("fetches", stats.Fetches),
		zap.Int64("cache_hits", stats.CacheHits),
	)
	return collection.New(h.style, features), stats, nil
}
