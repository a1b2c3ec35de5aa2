package marketdata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vantage/internal/database"
	"github.com/aristath/vantage/internal/domain"
)

func newTestRepo(t *testing.T) *PriceRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(database.HistorySchema)
	require.NoError(t, err)

	return NewPriceRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func candlesFrom(start time.Time, closes ...float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{
			Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100,
		}
	}
	return candles
}

func TestHistory_RangeAndOrdering(t *testing.T) {
	repo := newTestRepo(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertCandles("AAA", candlesFrom(start, 10, 11, 12, 13, 14)))

	got, err := repo.History("AAA", start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 11.0, got[0].Close)
	assert.Equal(t, 13.0, got[2].Close)
	assert.True(t, got[0].Date.Before(got[1].Date))
}

func TestUpsertCandles_OverwritesSameDay(t *testing.T) {
	repo := newTestRepo(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertCandles("AAA", candlesFrom(start, 10)))
	require.NoError(t, repo.UpsertCandles("AAA", candlesFrom(start, 99)))

	got, err := repo.History("AAA", start, start)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 99.0, got[0].Close)
}

func TestTrailingHistory_ReturnsLastSessionsOldestFirst(t *testing.T) {
	repo := newTestRepo(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertCandles("AAA", candlesFrom(start, 10, 11, 12, 13, 14)))

	got, err := repo.TrailingHistory("AAA", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 12.0, got[0].Close)
	assert.Equal(t, 14.0, got[2].Close)

	all, err := repo.TrailingHistory("AAA", 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := repo.TrailingHistory("ZZZ", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMacroHistory_RangeAndSeries(t *testing.T) {
	repo := newTestRepo(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.UpsertMacro(SeriesBenchmark, start.AddDate(0, 0, i), 4000+float64(i)))
	}
	require.NoError(t, repo.UpsertMacro(SeriesVolatility, start, 18))

	points, err := repo.MacroHistory(SeriesBenchmark, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 4001.0, points[0].Value)
	assert.Equal(t, start.AddDate(0, 0, 1), points[0].Date)

	vol, err := repo.TrailingMacro(SeriesVolatility, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{18}, vol)
}
