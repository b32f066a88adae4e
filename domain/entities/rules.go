package entities

import (
	"errors"
	"time"
)

// LotteryRules are the product settings captured by each round at creation
type LotteryRules struct {
	BetCost       uint64
	RoundDuration time.Duration
}

// Validate checks the rules are usable
func (r LotteryRules) Validate() error {
	if r.BetCost == 0 {
		return errors.New("bet cost must be positive")
	}
	if r.BetCost > MaxAmount {
		return ErrInvalidAmount
	}
	if r.RoundDuration <= 0 {
		return errors.New("round duration must be positive")
	}
	return nil
}
