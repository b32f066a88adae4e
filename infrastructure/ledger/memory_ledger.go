package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	// TransactionWindow is how long a created_at_time stays valid for deduplication
	TransactionWindow = 24 * time.Hour

	// PermittedDrift tolerates clock skew between caller and ledger
	PermittedDrift = 2 * time.Minute
)

// MemoryLedger is an in-process token ledger with transfer deduplication.
// It serves development, tests and the bundled ledger simulator.
type MemoryLedger struct {
	mu       sync.Mutex
	caller   entities.Principal
	minter   entities.LedgerAccount
	fee      uint64
	now      func() time.Time
	blocks   []entities.LedgerTransfer
	balances map[entities.LedgerAccount]uint64
	dedup    map[string]uint64

	unavailable int
}

var _ interfaces.LedgerClient = (*MemoryLedger)(nil)

// NewMemoryLedger creates a ledger whose transfers are made on behalf of caller
func NewMemoryLedger(caller entities.Principal, fee uint64) *MemoryLedger {
	return &MemoryLedger{
		caller:   caller,
		minter:   entities.LedgerAccount{Owner: "aaaaa-aa"},
		fee:      fee,
		now:      time.Now,
		balances: make(map[entities.LedgerAccount]uint64),
		dedup:    make(map[string]uint64),
	}
}

// WithClock replaces the ledger clock
func (l *MemoryLedger) WithClock(now func() time.Time) *MemoryLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// ForCaller returns a view of the same ledger acting on behalf of another principal
func (l *MemoryLedger) ForCaller(caller entities.Principal) *CallerView {
	return &CallerView{ledger: l, caller: caller}
}

// Mint credits new tokens to an account and returns the block index
func (l *MemoryLedger) Mint(to entities.LedgerAccount, amount uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[to] += amount
	return l.appendBlock(l.minter, to, amount, 0, nil, l.now())
}

// SetUnavailable makes the next n transfers fail with a transient error
func (l *MemoryLedger) SetUnavailable(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unavailable = n
}

// BlockCount returns the number of blocks on the ledger
func (l *MemoryLedger) BlockCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.blocks))
}

func (l *MemoryLedger) ListTransfers(ctx context.Context, account entities.LedgerAccount, start uint64, limit int) (*entities.TransferPage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	page := &entities.TransferPage{Transfers: make([]entities.LedgerTransfer, 0), NextStart: start}
	for index := start; index < uint64(len(l.blocks)); index++ {
		if limit > 0 && len(page.Transfers) >= limit {
			break
		}
		page.NextStart = index + 1

		block := l.blocks[index]
		if block.To.Equal(account) {
			page.Transfers = append(page.Transfers, block)
		}
	}
	return page, nil
}

func (l *MemoryLedger) BalanceOf(ctx context.Context, account entities.LedgerAccount) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *MemoryLedger) Fee(ctx context.Context) (uint64, error) {
	return l.fee, nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, args entities.TransferArgs) (uint64, error) {
	return l.transferAs(l.caller, args)
}

func (l *MemoryLedger) transferAs(caller entities.Principal, args entities.TransferArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unavailable > 0 {
		l.unavailable--
		return 0, &entities.TransferError{Kind: entities.TransferErrorTemporarilyUnavail}
	}

	from := entities.LedgerAccount{Owner: caller}
	if args.FromSubaccount != nil {
		from.Subaccount = *args.FromSubaccount
	}

	if args.Fee != nil && *args.Fee != l.fee {
		return 0, &entities.TransferError{Kind: entities.TransferErrorBadFee, Message: fmt.Sprintf("expected fee %d", l.fee)}
	}

	now := l.now()
	var dedupKey string
	if args.CreatedAtTime != nil {
		createdAt := time.Unix(0, int64(*args.CreatedAtTime))
		if createdAt.Before(now.Add(-TransactionWindow - PermittedDrift)) {
			return 0, &entities.TransferError{Kind: entities.TransferErrorTooOld}
		}
		if createdAt.After(now.Add(PermittedDrift)) {
			return 0, &entities.TransferError{Kind: entities.TransferErrorCreatedInFuture}
		}

		dedupKey = transferKey(from, args)
		if original, ok := l.dedup[dedupKey]; ok {
			return 0, &entities.TransferError{Kind: entities.TransferErrorDuplicate, DuplicateOf: original}
		}
	}

	if l.balances[from] < args.Amount+l.fee || args.Amount+l.fee < args.Amount {
		return 0, &entities.TransferError{
			Kind:    entities.TransferErrorInsufficientFunds,
			Message: fmt.Sprintf("balance %d", l.balances[from]),
		}
	}

	l.balances[from] -= args.Amount + l.fee
	l.balances[args.To] += args.Amount
	index := l.appendBlock(from, args.To, args.Amount, l.fee, args.Memo, now)
	if dedupKey != "" {
		l.dedup[dedupKey] = index
	}

	log.WithFields(log.Fields{
		"blockIndex": index,
		"from":       from.String(),
		"to":         args.To.String(),
		"amount":     args.Amount,
	}).Debug("Memory ledger transfer")

	return index, nil
}

func (l *MemoryLedger) appendBlock(from, to entities.LedgerAccount, amount, fee uint64, memo []byte, at time.Time) uint64 {
	index := uint64(len(l.blocks))
	block := entities.LedgerTransfer{
		BlockIndex: index,
		From:       from,
		To:         to,
		Amount:     amount,
		Fee:        fee,
		Memo:       bytes.Clone(memo),
		Timestamp:  at,
	}
	block.TxHash = blockHash(block)
	l.blocks = append(l.blocks, block)
	return index
}

func blockHash(block entities.LedgerTransfer) string {
	h := sha256.New()
	_ = binary.Write(h, binary.BigEndian, block.BlockIndex)
	h.Write([]byte(block.From.String()))
	h.Write([]byte(block.To.String()))
	_ = binary.Write(h, binary.BigEndian, block.Amount)
	_ = binary.Write(h, binary.BigEndian, block.Fee)
	h.Write(block.Memo)
	_ = binary.Write(h, binary.BigEndian, block.Timestamp.UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}

func transferKey(from entities.LedgerAccount, args entities.TransferArgs) string {
	return fmt.Sprintf("%s|%s|%d|%x|%d", from, args.To, args.Amount, args.Memo, *args.CreatedAtTime)
}

// CallerView issues transfers on behalf of a specific principal, such as a
// player paying into their deposit account
type CallerView struct {
	ledger *MemoryLedger
	caller entities.Principal
}

// Transfer moves funds out of the caller's account
func (v *CallerView) Transfer(ctx context.Context, args entities.TransferArgs) (uint64, error) {
	return v.ledger.transferAs(v.caller, args)
}
