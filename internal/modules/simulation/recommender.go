package simulation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/scoring"
	"github.com/aristath/vantage/internal/modules/sizing"
)

// DefaultRecommendationLimit bounds the candidate list when the caller
// does not specify one
const DefaultRecommendationLimit = 5

// DefaultAutoTradeLimit bounds an auto-trade run when the caller does
// not specify max_trades
const DefaultAutoTradeLimit = 3

// Recommend ranks trade candidates for a simulation. SELL candidates
// (current holdings whose score fell below the sell threshold) come
// first so auto trading frees cash before buying; BUY candidates
// follow, best score first. Assets whose score cannot be computed are
// skipped, never defaulted into a trade.
func (s *Service) Recommend(ctx context.Context, simulationID string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	sim, err := s.repo.Get(simulationID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.valuate(sim)
	if err != nil {
		return nil, err
	}

	sells := s.sellCandidates(ctx, snapshot)
	buys := s.buyCandidates(ctx, snapshot)

	recommendations := append(sells, buys...)
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	return recommendations, nil
}

// sellCandidates scores every holding and keeps the ones signalling
// SELL, weakest score first. Full position exit; partial scaling is
// the operator's call through manual trades.
func (s *Service) sellCandidates(ctx context.Context, snapshot *PortfolioSnapshot) []Recommendation {
	var out []Recommendation

	for _, position := range snapshot.Positions {
		breakdown, err := s.scorer.ScoreTicker(ctx, position.Ticker, 0)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", position.Ticker).Msg("Skipping unscorable holding")
			continue
		}
		if breakdown.Signal != domain.ActionSell {
			continue
		}

		out = append(out, Recommendation{
			Ticker:     position.Ticker,
			Action:     domain.ActionSell,
			Quantity:   position.Quantity,
			Price:      position.CurrentPrice,
			Confidence: confidenceFor(breakdown),
			Score:      breakdown.Final,
			Reason:     sellReason(breakdown),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

// buyCandidates scores the active universe and keeps BUY signals the
// limits allow at least one share of, best score first.
func (s *Service) buyCandidates(ctx context.Context, snapshot *PortfolioSnapshot) []Recommendation {
	assets, err := s.assets.ListActive()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list active assets for recommendations")
		return nil
	}

	exposure := sizing.Exposure{
		TotalValue: snapshot.TotalValue,
		Cash:       snapshot.Cash,
		ByTicker:   make(map[string]float64, len(snapshot.Positions)),
		ByClass:    make(map[domain.AssetClass]float64, 2),
	}
	for _, p := range snapshot.Positions {
		exposure.ByTicker[p.Ticker] = p.MarketValue
		exposure.ByClass[p.Class] += p.MarketValue
	}

	regimeState := s.scorer.CurrentRegime()

	var out []Recommendation
	for _, asset := range assets {
		breakdown, err := s.scorer.ScoreTicker(ctx, asset.Ticker, 0)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", asset.Ticker).Msg("Skipping unscorable asset")
			continue
		}
		if breakdown.Signal != domain.ActionBuy {
			continue
		}

		assetSnapshot, err := s.market.Snapshot(asset.Ticker)
		if err != nil || assetSnapshot.Price <= 0 {
			continue
		}

		budget := s.enforcer.MaxBuyValue(
			asset.Ticker, asset.Class, exposure,
			s.assessRiskLevel(asset.Ticker), regimeState)
		quantity := int64(math.Floor(budget / assetSnapshot.Price))
		if quantity < 1 {
			continue
		}

		out = append(out, Recommendation{
			Ticker:     asset.Ticker,
			Action:     domain.ActionBuy,
			Quantity:   quantity,
			Price:      assetSnapshot.Price,
			Confidence: confidenceFor(breakdown),
			Score:      breakdown.Final,
			Reason:     buyReason(breakdown),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// AutoTrade executes the current recommendations best-effort. Each
// attempt reports independently; one blocked trade never aborts the
// rest.
func (s *Service) AutoTrade(ctx context.Context, simulationID string, maxTrades int) ([]AutoTradeResult, error) {
	recommendations, err := s.Recommend(ctx, simulationID, autoTradeLimit(maxTrades))
	if err != nil {
		return nil, err
	}

	results := make([]AutoTradeResult, 0, len(recommendations))
	for _, rec := range recommendations {
		result := AutoTradeResult{Recommendation: rec}

		confidence := rec.Confidence
		trade, err := s.ExecuteTrade(simulationID, TradeRequest{
			Ticker:     rec.Ticker,
			Action:     rec.Action,
			Quantity:   rec.Quantity,
			Price:      rec.Price,
			Reason:     rec.Reason,
			Confidence: &confidence,
		})
		if err != nil {
			result.Error = err.Error()
			s.log.Warn().Err(err).Str("simulation_id", simulationID).
				Str("ticker", rec.Ticker).Str("action", string(rec.Action)).
				Msg("Auto trade skipped")
		} else {
			result.Executed = true
			result.Trade = trade
		}

		results = append(results, result)
	}

	return results, nil
}

func autoTradeLimit(maxTrades int) int {
	if maxTrades <= 0 {
		return DefaultAutoTradeLimit
	}
	return maxTrades
}

// confidenceFor maps the score's distance from neutral into [0,1]
func confidenceFor(b *scoring.Breakdown) float64 {
	return math.Min(math.Abs(b.Final-50)/50, 1)
}

func buyReason(b *scoring.Breakdown) string {
	labels := lo.Map(b.PositiveFactors, func(f scoring.Factor, _ int) string { return f.Label })
	if len(labels) == 0 {
		return fmt.Sprintf("composite score %.1f", b.Final)
	}
	return fmt.Sprintf("score %.1f: %s", b.Final, strings.Join(labels, "; "))
}

func sellReason(b *scoring.Breakdown) string {
	labels := lo.Map(b.RiskFactors, func(f scoring.Factor, _ int) string { return f.Label })
	if len(labels) == 0 {
		return fmt.Sprintf("composite score %.1f", b.Final)
	}
	return fmt.Sprintf("score %.1f: %s", b.Final, strings.Join(labels, "; "))
}
