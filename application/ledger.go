package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Ledger is the entry point of every lottery operation. Each write runs in its
// own unit of work; calls to the external ledger never run inside one.
type Ledger struct {
	uowFactory   UnitOfWorkFactory
	ledgerClient interfaces.LedgerClient
	randomness   interfaces.RandomnessSource
	settings     Settings

	statsCache StatsCache
	metrics    MetricsRecorder
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// LedgerOption customizes a Ledger
type LedgerOption func(*Ledger)

// WithStatsCache serves stats from the cache when possible
func WithStatsCache(cache StatsCache) LedgerOption {
	return func(l *Ledger) { l.statsCache = cache }
}

// WithMetrics records external call failures and invariant violations
func WithMetrics(metrics MetricsRecorder) LedgerOption {
	return func(l *Ledger) { l.metrics = metrics }
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithRetryPolicy replaces the backoff used for external ledger calls
func WithRetryPolicy(newBackOff func() backoff.BackOff) LedgerOption {
	return func(l *Ledger) { l.newBackOff = newBackOff }
}

// NewLedger creates the application facade
func NewLedger(
	uowFactory UnitOfWorkFactory,
	ledgerClient interfaces.LedgerClient,
	randomness interfaces.RandomnessSource,
	settings Settings,
	opts ...LedgerOption,
) *Ledger {
	l := &Ledger{
		uowFactory:   uowFactory,
		ledgerClient: ledgerClient,
		randomness:   randomness,
		settings:     settings,
		metrics:      noopMetrics{},
		now:          time.Now,
		newBackOff:   defaultBackOff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Settings returns the ledger-wide parameters
func (l *Ledger) Settings() Settings {
	return l.settings
}

// CurrentRound returns the live round, rolling over an expired one first
func (l *Ledger) CurrentRound(ctx context.Context) (*entities.Round, error) {
	var round *entities.Round
	err := l.write(ctx, func(svc *domainServices) error {
		var err error
		round, err = svc.round.CurrentRound(ctx, l.now())
		return err
	})
	return round, err
}

// GetRoundByID returns a historical or current round, nil if absent
func (l *Ledger) GetRoundByID(ctx context.Context, id int64) (*entities.Round, error) {
	var round *entities.Round
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		round, err = svc.round.GetRound(ctx, id)
		return err
	})
	return round, err
}

// GetUser returns the account with its histories, nil if absent
func (l *Ledger) GetUser(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	var account *entities.Account
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		account, err = svc.account.GetUser(ctx, owner)
		return err
	})
	return account, err
}

// CreateUser creates the caller's account if absent
func (l *Ledger) CreateUser(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	err := l.write(ctx, func(svc *domainServices) error {
		_, err := svc.account.CreateUser(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l.GetUser(ctx, owner)
}

// PlaceBet buys one entry in the current round. An expired round is rolled
// over in its own transaction first; if the round closes between the two
// transactions the bet is retried once against the successor.
func (l *Ledger) PlaceBet(ctx context.Context, owner entities.Principal) (*interfaces.BetResult, error) {
	var result *interfaces.BetResult
	var err error

	for attempt := 0; attempt < 2; attempt++ {
		if _, err = l.CurrentRound(ctx); err != nil {
			return nil, err
		}

		err = l.write(ctx, func(svc *domainServices) error {
			var err error
			result, err = svc.betting.PlaceBet(ctx, owner, l.now())
			return err
		})
		if !errors.Is(err, entities.ErrRoundClosed) {
			break
		}
		log.WithFields(log.Fields{
			"owner":   owner,
			"attempt": attempt,
		}).Debug("Round closed while placing bet, retrying")
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TriggerDraw settles the current round immediately. Admin only.
func (l *Ledger) TriggerDraw(ctx context.Context, caller entities.Principal) (*interfaces.DrawResult, error) {
	var result *interfaces.DrawResult
	err := l.write(ctx, func(svc *domainServices) error {
		var err error
		result, err = svc.round.ManualTriggerDraw(ctx, caller, l.now())
		return err
	})
	return result, err
}

// InitializeAuth grants admin to the configured deployer
func (l *Ledger) InitializeAuth(ctx context.Context, caller entities.Principal) error {
	return l.write(ctx, func(svc *domainServices) error {
		return svc.admin.InitializeAuth(ctx, caller)
	})
}

// IsAdmin reports whether the caller holds the admin capability
func (l *Ledger) IsAdmin(ctx context.Context, caller entities.Principal) (bool, error) {
	var isAdmin bool
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		isAdmin, err = svc.admin.IsAdmin(ctx, caller)
		return err
	})
	return isAdmin, err
}

// GetStats returns system statistics, from the cache when fresh
func (l *Ledger) GetStats(ctx context.Context) (*entities.SystemStats, error) {
	var (
		generation uint64
		cacheable  bool
	)
	if l.statsCache != nil {
		cached, gen, err := l.statsCache.Get(ctx)
		if err != nil {
			log.WithError(err).Warn("Stats cache unavailable, computing from database")
		} else if cached != nil {
			return cached, nil
		} else {
			generation, cacheable = gen, true
		}
	}

	var stats *entities.SystemStats
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		stats, err = svc.stats.GetStats(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := l.statsCache.Set(ctx, stats, generation); err != nil {
			log.WithError(err).Warn("Failed to cache stats")
		}
	}
	return stats, nil
}

// DepositAccount returns the treasury subaccount the owner deposits into
func (l *Ledger) DepositAccount(owner entities.Principal) (entities.LedgerAccount, error) {
	if owner.IsAnonymous() {
		return entities.LedgerAccount{}, entities.ErrAnonymousCaller
	}
	subaccount, err := entities.DepositSubaccount(owner)
	if err != nil {
		return entities.LedgerAccount{}, err
	}
	return entities.LedgerAccount{Owner: l.settings.Treasury, Subaccount: subaccount}, nil
}

// TreasuryAccount returns the account holding consolidated funds
func (l *Ledger) TreasuryAccount() entities.LedgerAccount {
	return entities.LedgerAccount{Owner: l.settings.Treasury}
}

// LedgerBalance queries the external ledger balance of an account
func (l *Ledger) LedgerBalance(ctx context.Context, account entities.LedgerAccount) (uint64, error) {
	var balance uint64
	err := l.callLedger(ctx, "balance_of", func(ctx context.Context) error {
		var err error
		balance, err = l.ledgerClient.BalanceOf(ctx, account)
		return err
	})
	return balance, err
}

// NextRoundEnd returns the end time of the undrawn round, nil if none
func (l *Ledger) NextRoundEnd(ctx context.Context) (*time.Time, error) {
	var end *time.Time
	err := l.readRepositories(ctx, func(uow UnitOfWork) error {
		var err error
		end, err = uow.RoundRepository().GetNextEndTime(ctx)
		return err
	})
	return end, err
}

// write runs fn in a transaction committed on success. Invariant violations
// freeze the affected account in a separate transaction.
func (l *Ledger) write(ctx context.Context, fn func(svc *domainServices) error) error {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(newDomainServices(uow, l.randomness, l.settings)); err != nil {
		l.quarantine(ctx, err)
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// read runs fn in a transaction that is always rolled back
func (l *Ledger) read(ctx context.Context, fn func(svc *domainServices) error) error {
	return l.readRepositories(ctx, func(uow UnitOfWork) error {
		return fn(newDomainServices(uow, l.randomness, l.settings))
	})
}

func (l *Ledger) readRepositories(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return fn(uow)
}

// quarantine freezes the account named by an invariant violation
func (l *Ledger) quarantine(ctx context.Context, err error) {
	var invariantErr *entities.InvariantError
	if !errors.As(err, &invariantErr) || invariantErr.Owner == "" {
		return
	}

	l.metrics.RecordInvariantViolation()
	log.WithFields(log.Fields{
		"owner":  invariantErr.Owner,
		"reason": invariantErr.Reason,
	}).Error("Ledger invariant violated, freezing account")

	freezeCtx := context.WithoutCancel(ctx)
	freezeErr := l.write(freezeCtx, func(svc *domainServices) error {
		return svc.account.Freeze(freezeCtx, invariantErr.Owner, invariantErr.Reason)
	})
	if freezeErr != nil {
		log.WithError(freezeErr).WithField("owner", invariantErr.Owner).Error("Failed to freeze account")
	}
}
