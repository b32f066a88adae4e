package entities

import "time"

// Winning is an append-only record of a prize paid to an account
type Winning struct {
	ID            int64     `db:"id" json:"-"`
	Owner         Principal `db:"owner" json:"-"`
	RoundID       int64     `db:"round_id" json:"round_id"`
	Amount        uint64    `db:"amount" json:"amount"`
	TransactionID int64     `db:"transaction_id" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
}
