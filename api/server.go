package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"btclotto/application"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LedgerService is the application surface exposed over HTTP
type LedgerService interface {
	CurrentRound(ctx context.Context) (*entities.Round, error)
	GetRoundByID(ctx context.Context, id int64) (*entities.Round, error)
	GetStats(ctx context.Context) (*entities.SystemStats, error)
	GetUser(ctx context.Context, owner entities.Principal) (*entities.Account, error)
	CreateUser(ctx context.Context, owner entities.Principal) (*entities.Account, error)
	PlaceBet(ctx context.Context, owner entities.Principal) (*interfaces.BetResult, error)
	TriggerDraw(ctx context.Context, caller entities.Principal) (*interfaces.DrawResult, error)
	InitializeAuth(ctx context.Context, caller entities.Principal) error
	CheckDeposits(ctx context.Context, owner entities.Principal) (*application.DepositReport, error)
	ListDeposits(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error)
	Withdraw(ctx context.Context, owner entities.Principal, amount uint64, destination *entities.LedgerAccount) (*entities.Withdrawal, error)
	ListWithdrawals(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error)
	DepositAccount(owner entities.Principal) (entities.LedgerAccount, error)
	TreasuryAccount() entities.LedgerAccount
	LedgerBalance(ctx context.Context, account entities.LedgerAccount) (uint64, error)
}

var _ LedgerService = (*application.Ledger)(nil)

// ServerConfig holds the HTTP surface settings
type ServerConfig struct {
	Addr             string
	JWTSecret        string
	UnitDecimals     int32
	LedgerCanisterID string
}

// Server serves the lottery API over HTTP
type Server struct {
	ledger    LedgerService
	config    ServerConfig
	present   presenter
	engine    *gin.Engine
	server    *http.Server
	healthFns []func(ctx context.Context) error
}

// NewServer builds the router. healthChecks are run by GET /health.
func NewServer(ledger LedgerService, cfg ServerConfig, healthChecks ...func(ctx context.Context) error) *Server {
	s := &Server{
		ledger:    ledger,
		config:    cfg,
		present:   presenter{decimals: cfg.UnitDecimals, now: time.Now},
		healthFns: healthChecks,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	s.registerRoutes(engine)
	s.engine = engine

	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.GET("/health", s.health)

	v1 := engine.Group("/api/v1")
	v1.GET("/round", s.getRound)
	v1.GET("/rounds/:id", s.getRoundByID)
	v1.GET("/stats", s.getStats)
	v1.GET("/users/:owner", s.getUser)
	v1.GET("/users/:owner/deposit-account", s.getDepositAccount)
	v1.GET("/ledger/balance", s.getLedgerBalance)
	v1.GET("/treasury", s.getTreasury)

	authed := v1.Group("", authMiddleware(s.config.JWTSecret))
	authed.POST("/users", s.createUser)
	authed.POST("/bets", s.placeBet)
	authed.POST("/deposits/check", s.checkDeposits)
	authed.GET("/deposits", s.listDeposits)
	authed.POST("/withdrawals", s.withdraw)
	authed.GET("/withdrawals", s.listWithdrawals)
	authed.POST("/admin/draw", s.triggerDraw)
	authed.POST("/admin/initialize", s.initializeAuth)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Infof("HTTP API listening on %s", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP API server error: %v", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
