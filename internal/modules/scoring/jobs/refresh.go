// Package jobs holds the scoring background jobs.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/modules/scoring"
	"github.com/aristath/vantage/internal/modules/universe"
)

// RefreshJob recomputes scores for every active asset so reads hit a
// warm cache, and evicts entries past their TTL.
type RefreshJob struct {
	scorer *scoring.Service
	cache  *scoring.Cache
	assets *universe.AssetRepository
	log    zerolog.Logger
}

// NewRefreshJob creates a score refresh job
func NewRefreshJob(scorer *scoring.Service, cache *scoring.Cache, assets *universe.AssetRepository, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		scorer: scorer,
		cache:  cache,
		assets: assets,
		log:    log.With().Str("job", "score_refresh").Logger(),
	}
}

// Name implements scheduler.Job
func (j *RefreshJob) Name() string {
	return "score_refresh"
}

// Run refreshes all active assets. Per-ticker failures are logged and
// skipped; one bad ticker never aborts the cycle.
func (j *RefreshJob) Run(ctx context.Context) error {
	if j.cache != nil {
		j.cache.Evict(time.Now().UTC())
	}

	assets, err := j.assets.ListActive()
	if err != nil {
		return err
	}

	refreshed := 0
	for _, asset := range assets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := j.scorer.ScoreTicker(ctx, asset.Ticker, 0); err != nil {
			j.log.Warn().Err(err).Str("ticker", asset.Ticker).Msg("Score refresh skipped ticker")
			continue
		}
		refreshed++
	}

	j.log.Info().Int("refreshed", refreshed).Int("universe", len(assets)).Msg("Score refresh cycle complete")
	return nil
}
