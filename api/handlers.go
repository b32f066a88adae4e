package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// detached keeps write operations running to completion when the client disconnects
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func listLimit(c *gin.Context) (int, bool) {
	text := c.Query("limit")
	if text == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(text)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return min(limit, maxListLimit), true
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, check := range s.healthFns {
		if err := check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getRound(c *gin.Context) {
	// Reading the round may roll over an expired one
	round, err := s.ledger.CurrentRound(detached(c))
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.round(round))
}

func (s *Server) getRoundByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid round id")
		return
	}

	round, err := s.ledger.GetRoundByID(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	if round == nil {
		respondWithError(c, entities.ErrRoundNotFound, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.round(round))
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.ledger.GetStats(c.Request.Context())
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.stats(stats))
}

func (s *Server) getUser(c *gin.Context) {
	owner, err := entities.ParsePrincipal(c.Param("owner"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	account, err := s.ledger.GetUser(c.Request.Context(), owner)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	if account == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	depositAccount, err := s.ledger.DepositAccount(owner)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.user(account, depositAccount))
}

func (s *Server) createUser(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}

	account, err := s.ledger.CreateUser(detached(c), owner)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	depositAccount, err := s.ledger.DepositAccount(owner)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.user(account, depositAccount))
}

func (s *Server) placeBet(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}

	result, err := s.ledger.PlaceBet(detached(c), owner)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.bet(result))
}

func (s *Server) triggerDraw(c *gin.Context) {
	principal, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}

	result, err := s.ledger.TriggerDraw(detached(c), principal)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.draw(result))
}

func (s *Server) initializeAuth(c *gin.Context) {
	principal, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}

	if err := s.ledger.InitializeAuth(detached(c), principal); err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": principal})
}

func (s *Server) checkDeposits(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}

	report, err := s.ledger.CheckDeposits(detached(c), owner)
	if err != nil {
		// Transfers credited before the failure stay credited
		var partial any
		if report != nil {
			partial = s.present.depositReport(report)
		}
		respondWithError(c, err, partial)
		return
	}
	c.JSON(http.StatusOK, s.present.depositReport(report))
}

func (s *Server) listDeposits(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	limit, ok := listLimit(c)
	if !ok {
		badRequest(c, "invalid limit")
		return
	}

	deposits, err := s.ledger.ListDeposits(c.Request.Context(), owner, limit)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s.present.deposits(deposits))
}

type withdrawRequest struct {
	// Amount in smallest units; AmountDisplay is the decimal alternative
	Amount        *uint64 `json:"amount"`
	AmountDisplay string  `json:"amount_display"`
	To            string  `json:"to"`
}

func (s *Server) withdraw(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	var amount uint64
	switch {
	case req.Amount != nil:
		amount = *req.Amount
	case req.AmountDisplay != "":
		amount, err = utils.ParseAmount(req.AmountDisplay, s.config.UnitDecimals)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
	default:
		badRequest(c, "amount is required")
		return
	}

	var destination *entities.LedgerAccount
	if req.To != "" {
		to, err := entities.ParseLedgerAccount(req.To)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		destination = &to
	}

	withdrawal, err := s.ledger.Withdraw(detached(c), owner, amount, destination)
	if err != nil {
		var data any
		if withdrawal != nil {
			data = s.present.withdrawal(withdrawal)
		}
		respondWithError(c, err, data)
		return
	}
	c.JSON(http.StatusOK, s.present.withdrawal(withdrawal))
}

func (s *Server) listWithdrawals(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	limit, ok := listLimit(c)
	if !ok {
		badRequest(c, "invalid limit")
		return
	}

	withdrawals, err := s.ledger.ListWithdrawals(c.Request.Context(), owner, limit)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	resp := make([]withdrawalResponse, 0, len(withdrawals))
	for _, withdrawal := range withdrawals {
		resp = append(resp, s.present.withdrawal(withdrawal))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getDepositAccount(c *gin.Context) {
	owner, err := entities.ParsePrincipal(c.Param("owner"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	account, err := s.ledger.DepositAccount(owner)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, accountOf(account))
}

func (s *Server) getLedgerBalance(c *gin.Context) {
	owner, err := entities.ParsePrincipal(c.Query("owner"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	account := entities.LedgerAccount{Owner: owner}
	if text := c.Query("subaccount"); text != "" {
		account.Subaccount, err = entities.ParseSubaccount(text)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	balance, err := s.ledger.LedgerBalance(c.Request.Context(), account)
	if err != nil {
		respondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{
		Account:        account.String(),
		Balance:        balance,
		BalanceDisplay: s.present.amount(balance),
	})
}

func (s *Server) getTreasury(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"treasury":           accountOf(s.ledger.TreasuryAccount()),
		"ledger_canister_id": s.config.LedgerCanisterID,
	})
}
