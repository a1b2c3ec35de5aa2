package database

// Schema DDL per database. Each schema is idempotent (IF NOT EXISTS)
// and applied at startup via ApplySchema.

// UniverseSchema - universe.db: tradable asset catalogue
const UniverseSchema = `
CREATE TABLE IF NOT EXISTS assets (
    ticker      TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    asset_class TEXT NOT NULL CHECK (asset_class IN ('EQUITY', 'CRYPTO')),
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assets_active ON assets(active);
`

// PortfolioSchema - portfolio.db: simulations, positions and the
// append-only trade ledger
const PortfolioSchema = `
CREATE TABLE IF NOT EXISTS simulations (
    id              TEXT PRIMARY KEY,
    owner           TEXT NOT NULL,
    mode            TEXT NOT NULL DEFAULT 'manual',
    initial_capital REAL NOT NULL,
    cash            REAL NOT NULL,
    created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    simulation_id TEXT NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
    ticker        TEXT NOT NULL,
    quantity      INTEGER NOT NULL CHECK (quantity >= 0),
    average_cost  REAL NOT NULL,
    PRIMARY KEY (simulation_id, ticker)
);

CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    simulation_id TEXT NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
    ticker        TEXT NOT NULL,
    action        TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
    quantity      INTEGER NOT NULL CHECK (quantity >= 1),
    price         REAL NOT NULL,
    reason        TEXT NOT NULL DEFAULT '',
    confidence    REAL,
    executed_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_simulation ON trades(simulation_id, executed_at);
CREATE INDEX IF NOT EXISTS idx_positions_simulation ON positions(simulation_id);
`

// HistorySchema - history.db: daily price series, macro series and
// the score cache
const HistorySchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    ticker TEXT NOT NULL,
    date   TEXT NOT NULL,
    open   REAL NOT NULL,
    high   REAL NOT NULL,
    low    REAL NOT NULL,
    close  REAL NOT NULL,
    volume REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (ticker, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_ticker ON daily_prices(ticker, date);

CREATE TABLE IF NOT EXISTS macro_series (
    series TEXT NOT NULL,
    date   TEXT NOT NULL,
    value  REAL NOT NULL,
    PRIMARY KEY (series, date)
);

CREATE TABLE IF NOT EXISTS score_cache (
    cache_key  TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_cache_expiry ON score_cache(expires_at);
`
