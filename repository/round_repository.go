package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/database"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// RoundRepository implements round and entry data access
type RoundRepository struct {
	q Queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

// NewRoundRepositoryWithTx creates a new round repository bound to a transaction
func NewRoundRepositoryWithTx(tx Queryable) interfaces.RoundRepository {
	return &RoundRepository{q: tx}
}

const roundColumns = `id, status, start_time, end_time, bet_cost, prize_pool, seed_hash,
	server_seed, beacon, winning_index, winner, drawn_at, created_at`

func scanRound(row rowScanner) (*entities.Round, error) {
	var round entities.Round
	var status string
	var betCost, prizePool int64
	var winner *string
	if err := row.Scan(
		&round.ID,
		&status,
		&round.StartTime,
		&round.EndTime,
		&betCost,
		&prizePool,
		&round.SeedHash,
		&round.ServerSeed,
		&round.Beacon,
		&round.WinningIndex,
		&winner,
		&round.DrawnAt,
		&round.CreatedAt,
	); err != nil {
		return nil, err
	}

	round.Status = entities.RoundStatus(status)
	var err error
	if round.BetCost, err = toAmount(betCost, "bet cost"); err != nil {
		return nil, err
	}
	if round.PrizePool, err = toAmount(prizePool, "prize pool"); err != nil {
		return nil, err
	}
	if winner != nil {
		principal := entities.Principal(*winner)
		round.Winner = &principal
	}

	return &round, nil
}

func (r *RoundRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return round, err
}

// GetCurrent returns the undrawn round, nil if none
func (r *RoundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	return round, nil
}

// GetCurrentForUpdate returns the undrawn round with a row lock
func (r *RoundRepository) GetCurrentForUpdate(ctx context.Context) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE status = 'active' FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("failed to lock current round: %w", err)
	}
	return round, nil
}

// GetByID retrieves a round by its ID
func (r *RoundRepository) GetByID(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round by ID %d: %w", id, err)
	}
	return round, nil
}

// GetByIDForUpdate retrieves a round by ID with row lock for update
func (r *RoundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round for update by ID %d: %w", id, err)
	}
	return round, nil
}

// CreateIfNoneActive inserts the round unless an active round already exists.
// A concurrent insert blocks on the unique index until the other transaction
// finishes, then conflicts.
func (r *RoundRepository) CreateIfNoneActive(ctx context.Context, round *entities.Round) (bool, error) {
	betCost, err := fromAmount(round.BetCost)
	if err != nil {
		return false, err
	}
	prizePool, err := fromAmount(round.PrizePool)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO rounds (status, start_time, end_time, bet_cost, prize_pool, seed_hash, server_seed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (status) WHERE status = 'active' DO NOTHING
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		string(round.Status),
		round.StartTime,
		round.EndTime,
		betCost,
		prizePool,
		round.SeedHash,
		round.ServerSeed,
	).Scan(&round.ID, &round.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create round: %w", err)
	}

	return true, nil
}

// IncrementPrizePool atomically adds to the pool of an active round
func (r *RoundRepository) IncrementPrizePool(ctx context.Context, id int64, amount uint64) (uint64, error) {
	value, err := fromAmount(amount)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE rounds
		SET prize_pool = prize_pool + $2
		WHERE id = $1
		  AND status = 'active'
		  AND prize_pool <= $3
		RETURNING prize_pool
	`

	var prizePool int64
	err = r.q.QueryRow(ctx, query, id, value, maxStoredAmount-value).Scan(&prizePool)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("round %d not found, already drawn or pool overflow", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment prize pool for round %d: %w", id, err)
	}

	return toAmount(prizePool, "prize pool")
}

// MarkDrawn stores the outcome if the round is still active. Exactly one
// caller observes true for a given round.
func (r *RoundRepository) MarkDrawn(ctx context.Context, round *entities.Round) (bool, error) {
	var winner *string
	if round.Winner != nil {
		text := round.Winner.String()
		winner = &text
	}

	query := `
		UPDATE rounds
		SET status = 'drawn',
		    beacon = $2,
		    winning_index = $3,
		    winner = $4,
		    drawn_at = $5
		WHERE id = $1
		  AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query,
		round.ID,
		round.Beacon,
		round.WinningIndex,
		winner,
		round.DrawnAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark round %d drawn: %w", round.ID, err)
	}

	return result.RowsAffected() == 1, nil
}

// AddEntry registers a paid entry
func (r *RoundRepository) AddEntry(ctx context.Context, entry *entities.RoundEntry) error {
	query := `
		INSERT INTO round_entries (round_id, owner, transaction_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, entry.RoundID, entry.Owner, entry.TransactionID).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add entry to round %d: %w", entry.RoundID, err)
	}

	return nil
}

// GetEntries returns a round's entries in registration order
func (r *RoundRepository) GetEntries(ctx context.Context, roundID int64) ([]*entities.RoundEntry, error) {
	query := `
		SELECT id, round_id, owner, transaction_id, created_at
		FROM round_entries
		WHERE round_id = $1
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for round %d: %w", roundID, err)
	}
	defer rows.Close()

	entries := make([]*entities.RoundEntry, 0)
	for rows.Next() {
		var entry entities.RoundEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.RoundID,
			&entry.Owner,
			&entry.TransactionID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan round entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate round entries: %w", err)
	}

	return entries, nil
}

// GetNextEndTime returns the end time of the active round
func (r *RoundRepository) GetNextEndTime(ctx context.Context) (*time.Time, error) {
	var endTime *time.Time
	err := r.q.QueryRow(ctx, `SELECT MIN(end_time) FROM rounds WHERE status = 'active'`).Scan(&endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get next round end time: %w", err)
	}

	return endTime, nil
}
