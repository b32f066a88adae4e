package api

import (
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"btclotto/application"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
	"btclotto/domain/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
	Data  any    `json:"data,omitempty"`
}

type roundResponse struct {
	ID               int64                `json:"id"`
	Status           entities.RoundStatus `json:"status"`
	Phase            entities.RoundPhase  `json:"phase"`
	StartTime        int64                `json:"start_time"`
	EndTime          int64                `json:"end_time"`
	BetCost          uint64               `json:"bet_cost"`
	BetCostDisplay   string               `json:"bet_cost_display"`
	PrizePool        uint64               `json:"prize_pool"`
	PrizePoolDisplay string               `json:"prize_pool_display"`
	Participants     []entities.Principal `json:"participants"`
	Winners          []entities.Principal `json:"winners"`
	SeedHash         string               `json:"seed_hash"`
	ServerSeed       string               `json:"server_seed,omitempty"`
	Beacon           string               `json:"beacon,omitempty"`
	WinningIndex     *int64               `json:"winning_index,omitempty"`
	DrawnAt          *int64               `json:"drawn_at,omitempty"`
}

type transactionResponse struct {
	ID            int64                    `json:"id"`
	Type          entities.TransactionType `json:"type"`
	Description   string                   `json:"description"`
	Amount        uint64                   `json:"amount"`
	AmountDisplay string                   `json:"amount_display"`
	BalanceAfter  uint64                   `json:"balance_after"`
	Timestamp     int64                    `json:"timestamp"`
}

type winningResponse struct {
	RoundID       int64  `json:"round_id"`
	Amount        uint64 `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Timestamp     int64  `json:"timestamp"`
}

type userResponse struct {
	Owner              entities.Principal    `json:"owner"`
	Balance            uint64                `json:"balance"`
	BalanceDisplay     string                `json:"balance_display"`
	DepositAccount     string                `json:"deposit_account"`
	Frozen             bool                  `json:"frozen"`
	TransactionHistory []transactionResponse `json:"transaction_history"`
	WinningHistory     []winningResponse     `json:"winning_history"`
	CreatedAt          int64                 `json:"created_at"`
}

type statsResponse struct {
	TotalRounds          uint64 `json:"total_rounds"`
	TotalBets            uint64 `json:"total_bets"`
	TotalWinnings        uint64 `json:"total_winnings"`
	TotalWinningsDisplay string `json:"total_winnings_display"`
	ActiveUsers          uint64 `json:"active_users"`
	TotalDeposits        uint64 `json:"total_deposits"`
	TotalDepositsDisplay string `json:"total_deposits_display"`
}

type betResponse struct {
	Round             roundResponse `json:"round"`
	EntryID           int64         `json:"entry_id"`
	NewBalance        uint64        `json:"new_balance"`
	NewBalanceDisplay string        `json:"new_balance_display"`
}

type drawResponse struct {
	Round     *roundResponse      `json:"round,omitempty"`
	Winner    *entities.Principal `json:"winner,omitempty"`
	PrizePool uint64              `json:"prize_pool"`
	NextRound *roundResponse      `json:"next_round,omitempty"`
}

type depositResponse struct {
	TxHash        string                 `json:"tx_hash"`
	Amount        uint64                 `json:"amount"`
	AmountDisplay string                 `json:"amount_display"`
	Status        entities.DepositStatus `json:"status"`
	BlockIndex    uint64                 `json:"block_index"`
	Swept         bool                   `json:"swept"`
	Timestamp     int64                  `json:"timestamp"`
}

type depositReportResponse struct {
	Credited []depositResponse `json:"credited"`
	Cursor   uint64            `json:"cursor"`
}

type withdrawalResponse struct {
	ID            string                    `json:"id"`
	Amount        uint64                    `json:"amount"`
	AmountDisplay string                    `json:"amount_display"`
	Fee           uint64                    `json:"fee"`
	Destination   string                    `json:"destination"`
	Status        entities.WithdrawalStatus `json:"status"`
	BlockIndex    *uint64                   `json:"block_index,omitempty"`
	FailureReason *string                   `json:"failure_reason,omitempty"`
	Timestamp     int64                     `json:"timestamp"`
}

type accountResponse struct {
	Owner      entities.Principal `json:"owner"`
	Subaccount string             `json:"subaccount,omitempty"`
	Account    string             `json:"account"`
}

type balanceResponse struct {
	Account        string `json:"account"`
	Balance        uint64 `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
}

// presenter converts domain values into responses
type presenter struct {
	decimals int32
	now      func() time.Time
}

func (p presenter) amount(value uint64) string {
	return utils.FormatAmount(value, p.decimals)
}

func (p presenter) round(round *entities.Round) *roundResponse {
	if round == nil {
		return nil
	}

	participants := round.Participants
	if participants == nil {
		participants = []entities.Principal{}
	}
	resp := &roundResponse{
		ID:               round.ID,
		Status:           round.Status,
		Phase:            round.Phase(p.now()),
		StartTime:        round.StartTime.UnixNano(),
		EndTime:          round.EndTime.UnixNano(),
		BetCost:          round.BetCost,
		BetCostDisplay:   p.amount(round.BetCost),
		PrizePool:        round.PrizePool,
		PrizePoolDisplay: p.amount(round.PrizePool),
		Participants:     participants,
		Winners:          round.Winners(),
		SeedHash:         hex.EncodeToString(round.SeedHash),
		ServerSeed:       hex.EncodeToString(round.RevealedSeed()),
		Beacon:           hex.EncodeToString(round.Beacon),
		WinningIndex:     round.WinningIndex,
	}
	if round.DrawnAt != nil {
		drawnAt := round.DrawnAt.UnixNano()
		resp.DrawnAt = &drawnAt
	}
	return resp
}

func (p presenter) user(account *entities.Account, depositAccount entities.LedgerAccount) *userResponse {
	resp := &userResponse{
		Owner:              account.Owner,
		Balance:            account.Balance,
		BalanceDisplay:     p.amount(account.Balance),
		DepositAccount:     depositAccount.String(),
		Frozen:             account.Frozen,
		TransactionHistory: make([]transactionResponse, 0, len(account.TransactionHistory)),
		WinningHistory:     make([]winningResponse, 0, len(account.WinningHistory)),
		CreatedAt:          account.CreatedAt.UnixNano(),
	}
	for _, tx := range account.TransactionHistory {
		resp.TransactionHistory = append(resp.TransactionHistory, transactionResponse{
			ID:            tx.ID,
			Type:          tx.Type,
			Description:   tx.GetTransactionDescription(),
			Amount:        tx.Amount,
			AmountDisplay: p.amount(tx.Amount),
			BalanceAfter:  tx.BalanceAfter,
			Timestamp:     tx.CreatedAt.UnixNano(),
		})
	}
	for _, winning := range account.WinningHistory {
		resp.WinningHistory = append(resp.WinningHistory, winningResponse{
			RoundID:       winning.RoundID,
			Amount:        winning.Amount,
			AmountDisplay: p.amount(winning.Amount),
			Timestamp:     winning.CreatedAt.UnixNano(),
		})
	}
	return resp
}

func (p presenter) stats(stats *entities.SystemStats) statsResponse {
	return statsResponse{
		TotalRounds:          stats.TotalRounds,
		TotalBets:            stats.TotalBets,
		TotalWinnings:        stats.TotalWinnings,
		TotalWinningsDisplay: p.amount(stats.TotalWinnings),
		ActiveUsers:          stats.ActiveUsers,
		TotalDeposits:        stats.TotalDeposits,
		TotalDepositsDisplay: p.amount(stats.TotalDeposits),
	}
}

func (p presenter) bet(result *interfaces.BetResult) betResponse {
	return betResponse{
		Round:             *p.round(result.Round),
		EntryID:           result.Entry.ID,
		NewBalance:        result.NewBalance,
		NewBalanceDisplay: p.amount(result.NewBalance),
	}
}

func (p presenter) draw(result *interfaces.DrawResult) drawResponse {
	return drawResponse{
		Round:     p.round(result.Round),
		Winner:    result.Winner,
		PrizePool: result.PrizePool,
		NextRound: p.round(result.NextRound),
	}
}

func (p presenter) deposits(deposits []*entities.Deposit) []depositResponse {
	resp := make([]depositResponse, 0, len(deposits))
	for _, deposit := range deposits {
		resp = append(resp, depositResponse{
			TxHash:        deposit.TxHash,
			Amount:        deposit.Amount,
			AmountDisplay: p.amount(deposit.Amount),
			Status:        deposit.Status,
			BlockIndex:    deposit.BlockIndex,
			Swept:         deposit.Swept,
			Timestamp:     deposit.CreatedAt.UnixNano(),
		})
	}
	return resp
}

func (p presenter) depositReport(report *application.DepositReport) depositReportResponse {
	return depositReportResponse{
		Credited: p.deposits(report.Credited),
		Cursor:   report.Cursor,
	}
}

func (p presenter) withdrawal(withdrawal *entities.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:            withdrawal.ID.String(),
		Amount:        withdrawal.Amount,
		AmountDisplay: p.amount(withdrawal.Amount),
		Fee:           withdrawal.Fee,
		Destination:   withdrawal.Destination.String(),
		Status:        withdrawal.Status,
		BlockIndex:    withdrawal.BlockIndex,
		FailureReason: withdrawal.FailureReason,
		Timestamp:     int64(withdrawal.CreatedAtTime),
	}
}

func accountOf(account entities.LedgerAccount) accountResponse {
	resp := accountResponse{
		Owner:   account.Owner,
		Account: account.String(),
	}
	if !account.Subaccount.IsDefault() {
		resp.Subaccount = account.Subaccount.Hex()
	}
	return resp
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrUnknownAccount),
		errors.Is(err, entities.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, entities.ErrRoundClosed),
		errors.Is(err, entities.ErrInvariantViolation):
		return http.StatusConflict
	case errors.Is(err, entities.ErrUnauthorized),
		errors.Is(err, entities.ErrAnonymousCaller):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrInvalidAmount),
		errors.Is(err, entities.ErrInvalidDestination):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrWithdrawalPending):
		return http.StatusAccepted
	case errors.Is(err, entities.ErrExternalCallFailed),
		errors.Is(err, entities.ErrWithdrawFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError writes the mapped status. Internal details are only logged.
func respondWithError(c *gin.Context, err error, data any) {
	status := statusFor(err)
	_ = c.Error(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		message = "internal error"
	}
	c.JSON(status, errorResponse{Error: message, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: message})
}
