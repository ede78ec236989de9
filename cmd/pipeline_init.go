package main

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkmap/internal/config"
	"github.com/sells-group/parkmap/internal/fetcher"
	"github.com/sells-group/parkmap/internal/mapconfig"
	"github.com/sells-group/parkmap/internal/model"
	"github.com/sells-group/parkmap/internal/parks"
	"github.com/sells-group/parkmap/internal/store"
)

// harvestEnv holds the components of a harvest run.
type harvestEnv struct {
	Fetcher   *fetcher.CachedFetcher
	Harvester *parks.Harvester
}

// initHarvest wires the fetcher, cache, extractor and harvester from c.
func initHarvest(c *config.Config) (*harvestEnv, error) {
	base, err := url.Parse(c.Source.BaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse base url")
	}
	mode, err := fetcher.ParseKeyMode(c.Cache.KeyMode)
	if err != nil {
		return nil, err
	}
	fallback, err := mapconfig.ParseFallback(c.Layer.Fallback)
	if err != nil {
		return nil, err
	}

	cache := fetcher.NewCache(c.Cache.Dir)
	http := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   c.Fetch.UserAgent,
		Timeout:     time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		MaxAttempts: c.Fetch.MaxAttempts,
		RatePerSec:  c.Fetch.RatePerSec,
	})
	cf := fetcher.NewCachedFetcher(http, cache, mode)

	walker := parks.NewWalker(cf, parks.ListingOptions{
		BaseURL:     base,
		ListingPath: c.Source.ListingPath,
		Pages:       c.Source.ListingPages,
		LinkSelect:  c.Source.Selectors.ListingLink,
	})
	extractor := mapconfig.NewExtractor(cache, mapconfig.Options{
		ScriptSelector: c.Source.Selectors.SettingsScript,
		ExpectedLayer:  c.Layer.ExpectedName,
		Fallback:       fallback,
	})
	builder := parks.NewBuilder(cf, extractor, parks.BuilderOptions{
		BaseURL:        base,
		DescriptionSel: c.Source.Selectors.Description,
		GallerySel:     c.Source.Selectors.Gallery,
	})
	style := model.Style{
		LayerName: c.Output.Style.LayerName,
		Icon:      c.Output.Style.Icon,
		Color:     c.Output.Style.Color,
	}

	return &harvestEnv{
		Fetcher:   cf,
		Harvester: parks.NewHarvester(walker, builder, cf, style),
	}, nil
}

// initStore opens the run ledger. It returns a nil store when no ledger path
// is configured.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// trackRun records fn as a run in the ledger when one is configured. Ledger
// failures are logged and never fail the command.
func trackRun(ctx context.Context, command, output string, fn func(ctx context.Context) (model.RunResult, error)) error {
	log := zap.L().With(zap.String("command", command))

	st, err := initStore(ctx)
	if err != nil {
		log.Warn("run ledger unavailable", zap.Error(err))
	}
	if st == nil {
		_, err := fn(ctx)
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.StartRun(ctx, command, output)
	if err != nil {
		log.Warn("failed to record run start", zap.Error(err))
		_, err := fn(ctx)
		return err
	}

	result, runErr := fn(ctx)
	// The run context may already be cancelled; record the outcome regardless.
	recordCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := st.FailRun(recordCtx, run.ID, runErr); err != nil {
			log.Warn("failed to record run failure", zap.String("run_id", run.ID), zap.Error(err))
		}
		return runErr
	}
	if err := st.CompleteRun(recordCtx, run.ID, result); err != nil {
		log.Warn("failed to record run completion", zap.String("run_id", run.ID), zap.Error(err))
	}
	return nil
}

// splitAndTrim splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
