package interfaces

import (
	"context"

	"btclotto/domain/entities"
)

// LedgerClient is the external token ledger holding the real funds
type LedgerClient interface {
	// ListTransfers returns transfers received by the account at or after the start block
	ListTransfers(ctx context.Context, account entities.LedgerAccount, start uint64, limit int) (*entities.TransferPage, error)

	// BalanceOf returns the ledger balance of an account
	BalanceOf(ctx context.Context, account entities.LedgerAccount) (uint64, error)

	// Transfer moves funds out of a treasury subaccount and returns the block index.
	// Ledger rejections are returned as *entities.TransferError.
	Transfer(ctx context.Context, args entities.TransferArgs) (uint64, error)

	// Fee returns the current transfer fee
	Fee(ctx context.Context) (uint64, error)
}

// RandomnessSource supplies the unpredictable beacon captured at settlement time
type RandomnessSource interface {
	Beacon(ctx context.Context) ([]byte, error)
}
