package simulation

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/database"
	"github.com/aristath/vantage/internal/domain"
)

// Column lists avoid SELECT * so schema changes fail loudly.
// Order must match the scan helpers below.
const (
	simulationColumns = `id, owner, mode, initial_capital, cash, created_at`
	positionColumns   = `simulation_id, ticker, quantity, average_cost`
	tradeColumns      = `id, simulation_id, ticker, action, quantity, price, reason, confidence, executed_at`
)

// Repository handles simulation persistence in portfolio.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new simulation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "simulation").Logger(),
	}
}

// Create inserts a new simulation
func (r *Repository) Create(owner string, initialCapital float64, mode Mode) (*Simulation, error) {
	sim := &Simulation{
		ID:             uuid.New().String(),
		Owner:          owner,
		Mode:           mode,
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := r.db.Exec(`
		INSERT INTO simulations (id, owner, mode, initial_capital, cash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sim.ID, sim.Owner, string(sim.Mode), sim.InitialCapital, sim.Cash, sim.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	r.log.Info().Str("simulation_id", sim.ID).Str("owner", owner).
		Float64("initial_capital", initialCapital).Msg("Simulation created")

	return sim, nil
}

// Get retrieves a simulation by id
func (r *Repository) Get(id string) (*Simulation, error) {
	row := r.db.QueryRow(`SELECT `+simulationColumns+` FROM simulations WHERE id = ?`, id)

	sim, err := scanSimulation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("simulation %s: %w", id, domain.ErrUnknownSimulation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation %s: %w", id, err)
	}

	return sim, nil
}

// Positions retrieves all positions of a simulation ordered by ticker
func (r *Repository) Positions(simulationID string) ([]Position, error) {
	rows, err := r.db.Query(
		`SELECT `+positionColumns+` FROM positions WHERE simulation_id = ? ORDER BY ticker`,
		simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.SimulationID, &p.Ticker, &p.Quantity, &p.AverageCost); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// Trades retrieves the ordered trade history of a simulation
func (r *Repository) Trades(simulationID string) ([]Trade, error) {
	rows, err := r.db.Query(
		`SELECT `+tradeColumns+` FROM trades WHERE simulation_id = ? ORDER BY executed_at, id`,
		simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

// ExecuteTrade commits one trade atomically: cash change, position
// upsert/removal and the appended trade record either all land or
// none do.
func (r *Repository) ExecuteTrade(sim *Simulation, trade Trade, newCash float64, newPosition *Position) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE simulations SET cash = ? WHERE id = ?`, newCash, sim.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrUnknownSimulation
		}

		if newPosition == nil || newPosition.Quantity == 0 {
			if _, err := tx.Exec(
				`DELETE FROM positions WHERE simulation_id = ? AND ticker = ?`,
				sim.ID, trade.Ticker); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(`
				INSERT INTO positions (simulation_id, ticker, quantity, average_cost)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(simulation_id, ticker) DO UPDATE SET
					quantity = excluded.quantity, average_cost = excluded.average_cost`,
				sim.ID, newPosition.Ticker, newPosition.Quantity, newPosition.AverageCost); err != nil {
				return err
			}
		}

		var confidence any
		if trade.Confidence != nil {
			confidence = *trade.Confidence
		}
		_, err = tx.Exec(`
			INSERT INTO trades (id, simulation_id, ticker, action, quantity, price, reason, confidence, executed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trade.ID, trade.SimulationID, trade.Ticker, string(trade.Action),
			trade.Quantity, trade.Price, trade.Reason, confidence, trade.ExecutedAt.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to execute trade for %s: %w", sim.ID, err)
	}

	return nil
}

// Reset clears trades and positions and restores cash to the initial
// capital. Idempotent by construction.
func (r *Repository) Reset(simulationID string) error {
	sim, err := r.Get(simulationID)
	if err != nil {
		return err
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM trades WHERE simulation_id = ?`, simulationID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM positions WHERE simulation_id = ?`, simulationID); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE simulations SET cash = ? WHERE id = ?`, sim.InitialCapital, simulationID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reset simulation %s: %w", simulationID, err)
	}

	r.log.Info().Str("simulation_id", simulationID).Msg("Simulation reset")
	return nil
}

// Delete removes a simulation and, via cascade, its positions and
// trades. Terminal.
func (r *Repository) Delete(simulationID string) error {
	res, err := r.db.Exec(`DELETE FROM simulations WHERE id = ?`, simulationID)
	if err != nil {
		return fmt.Errorf("failed to delete simulation %s: %w", simulationID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("simulation %s: %w", simulationID, domain.ErrUnknownSimulation)
	}

	r.log.Info().Str("simulation_id", simulationID).Msg("Simulation deleted")
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSimulation(row scannable) (*Simulation, error) {
	var s Simulation
	var mode string
	var createdAt int64

	if err := row.Scan(&s.ID, &s.Owner, &mode, &s.InitialCapital, &s.Cash, &createdAt); err != nil {
		return nil, err
	}

	s.Mode = Mode(mode)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}

func scanTrade(row scannable) (*Trade, error) {
	var t Trade
	var action string
	var confidence sql.NullFloat64
	var executedAt int64

	if err := row.Scan(&t.ID, &t.SimulationID, &t.Ticker, &action, &t.Quantity,
		&t.Price, &t.Reason, &confidence, &executedAt); err != nil {
		return nil, err
	}

	t.Action = domain.Action(action)
	if confidence.Valid {
		t.Confidence = &confidence.Float64
	}
	t.ExecutedAt = time.Unix(executedAt, 0).UTC()
	return &t, nil
}
