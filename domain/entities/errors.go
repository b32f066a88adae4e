package entities

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAccount      = errors.New("unknown account")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRoundClosed         = errors.New("round is closed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDuplicateDeposit    = errors.New("deposit already recorded")
	ErrExternalCallFailed  = errors.New("external ledger call failed")
	ErrInvariantViolation  = errors.New("ledger invariant violated")
	ErrAccountCorrupt      = errors.New("account exists but is corrupt")
	ErrWithdrawFailed      = errors.New("withdrawal failed")
	ErrAlreadySettled      = errors.New("round already settled")
	ErrInvalidAmount       = errors.New("amount out of range")
	ErrAnonymousCaller     = errors.New("anonymous principal cannot own an account")
	ErrRoundNotFound       = errors.New("round not found")
	ErrInvalidDestination  = errors.New("invalid withdrawal destination")
)

// ErrAccountFrozen is returned for debits against a quarantined account
var ErrAccountFrozen = fmt.Errorf("%w: account frozen pending investigation", ErrInvariantViolation)

// InvariantError reports a broken ledger invariant on a specific account.
// The account must be frozen and the operation aborted.
type InvariantError struct {
	Owner  Principal
	Reason string
	// Corrupt is set when the violation was found on an existing account at creation
	Corrupt bool
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on account %s: %s", e.Owner, e.Reason)
}

// Is matches ErrInvariantViolation, and ErrAccountCorrupt for corrupt accounts
func (e *InvariantError) Is(target error) bool {
	if target == ErrInvariantViolation {
		return true
	}
	return e.Corrupt && target == ErrAccountCorrupt
}
