// Package marketdata stores and serves daily price history and macro
// series, and implements the MarketDataSource collaborator contract.
package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/database"
	"github.com/aristath/vantage/internal/domain"
)

// Macro series names in history.db
const (
	SeriesBenchmark  = "BENCHMARK"
	SeriesVolatility = "VOLATILITY"
)

const dateLayout = "2006-01-02"

// PriceRepository handles daily price and macro series persistence
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// UpsertCandles bulk-inserts daily candles for a ticker inside one
// transaction
func (r *PriceRepository) UpsertCandles(ticker string, candles []domain.Candle) error {
	if ticker == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrValidation)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO daily_prices (ticker, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticker, date) DO UPDATE SET
				open = excluded.open, high = excluded.high, low = excluded.low,
				close = excluded.close, volume = excluded.volume`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range candles {
			if _, err := stmt.Exec(ticker, c.Date.UTC().Format(dateLayout), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
				return err
			}
		}
		return nil
	})
}

// History returns candles for a ticker in [start, end], oldest first
func (r *PriceRepository) History(ticker string, start, end time.Time) (domain.PriceHistory, error) {
	rows, err := r.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		ticker, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", ticker, err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// TrailingHistory returns up to the last n sessions for a ticker,
// oldest first
func (r *PriceRepository) TrailingHistory(ticker string, sessions int) (domain.PriceHistory, error) {
	rows, err := r.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM (
			SELECT date, open, high, low, close, volume
			FROM daily_prices WHERE ticker = ?
			ORDER BY date DESC LIMIT ?
		) ORDER BY date`,
		ticker, sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to query trailing history for %s: %w", ticker, err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// UpsertMacro stores one macro series point
func (r *PriceRepository) UpsertMacro(series string, date time.Time, value float64) error {
	_, err := r.db.Exec(`
		INSERT INTO macro_series (series, date, value) VALUES (?, ?, ?)
		ON CONFLICT(series, date) DO UPDATE SET value = excluded.value`,
		series, date.UTC().Format(dateLayout), value)
	if err != nil {
		return fmt.Errorf("failed to upsert macro point %s: %w", series, err)
	}
	return nil
}

// MacroPoint is one dated macro series observation
type MacroPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MacroHistory returns macro series points in [start, end], oldest
// first
func (r *PriceRepository) MacroHistory(series string, start, end time.Time) ([]MacroPoint, error) {
	rows, err := r.db.Query(`
		SELECT date, value FROM macro_series
		WHERE series = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		series, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query macro series %s: %w", series, err)
	}
	defer rows.Close()

	var points []MacroPoint
	for rows.Next() {
		var p MacroPoint
		var date string
		if err := rows.Scan(&date, &p.Value); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q in macro_series: %w", date, err)
		}
		p.Date = parsed
		points = append(points, p)
	}

	return points, rows.Err()
}

// TrailingMacro returns up to the last n points of a macro series,
// oldest first
func (r *PriceRepository) TrailingMacro(series string, points int) ([]float64, error) {
	rows, err := r.db.Query(`
		SELECT value FROM (
			SELECT date, value FROM macro_series WHERE series = ?
			ORDER BY date DESC LIMIT ?
		) ORDER BY date`,
		series, points)
	if err != nil {
		return nil, fmt.Errorf("failed to query macro series %s: %w", series, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

func scanCandles(rows *sql.Rows) (domain.PriceHistory, error) {
	var history domain.PriceHistory
	for rows.Next() {
		var c domain.Candle
		var date string
		if err := rows.Scan(&date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q in daily_prices: %w", date, err)
		}
		c.Date = parsed
		history = append(history, c)
	}
	return history, rows.Err()
}
