// Package universe manages the catalogue of tradable assets.
package universe

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
)

// Asset is one catalogue entry
type Asset struct {
	Ticker    string           `json:"ticker"`
	Name      string           `json:"name"`
	Class     domain.AssetClass `json:"asset_class"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// assetColumns avoids SELECT * so schema changes fail loudly
const assetColumns = `ticker, name, asset_class, active, created_at`

// AssetRepository handles asset catalogue database operations
type AssetRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{
		db:  db,
		log: log.With().Str("repo", "assets").Logger(),
	}
}

// Upsert inserts or updates an asset
func (r *AssetRepository) Upsert(asset Asset) error {
	ticker := normalizeTicker(asset.Ticker)
	if ticker == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrValidation)
	}
	if !asset.Class.Valid() {
		return fmt.Errorf("%w: unknown asset class %q", domain.ErrValidation, asset.Class)
	}

	_, err := r.db.Exec(`
		INSERT INTO assets (ticker, name, asset_class, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			asset_class = excluded.asset_class,
			active = excluded.active`,
		ticker, asset.Name, string(asset.Class), boolToInt(asset.Active), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", ticker, err)
	}

	return nil
}

// Get retrieves one asset by ticker
func (r *AssetRepository) Get(ticker string) (*Asset, error) {
	row := r.db.QueryRow(
		`SELECT `+assetColumns+` FROM assets WHERE ticker = ?`,
		normalizeTicker(ticker))

	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", ticker, domain.ErrUnknownAsset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", ticker, err)
	}

	return asset, nil
}

// ListActive retrieves all active assets ordered by ticker
func (r *AssetRepository) ListActive() ([]Asset, error) {
	rows, err := r.db.Query(
		`SELECT ` + assetColumns + ` FROM assets WHERE active = 1 ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}

	return assets, rows.Err()
}

// Deactivate marks an asset inactive; history is kept
func (r *AssetRepository) Deactivate(ticker string) error {
	res, err := r.db.Exec(`UPDATE assets SET active = 0 WHERE ticker = ?`, normalizeTicker(ticker))
	if err != nil {
		return fmt.Errorf("failed to deactivate asset %s: %w", ticker, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", ticker, domain.ErrUnknownAsset)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAsset(row scannable) (*Asset, error) {
	var a Asset
	var class string
	var active int
	var createdAt int64

	if err := row.Scan(&a.Ticker, &a.Name, &class, &active, &createdAt); err != nil {
		return nil, err
	}

	a.Class = domain.AssetClass(class)
	a.Active = active != 0
	a.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &a, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
