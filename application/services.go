package application

import (
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
	"btclotto/domain/services"
)

// domainServices are the domain services bound to one unit of work
type domainServices struct {
	account    interfaces.AccountService
	draw       interfaces.DrawService
	round      interfaces.RoundService
	betting    interfaces.BettingService
	deposit    interfaces.DepositService
	withdrawal interfaces.WithdrawalService
	stats      interfaces.StatsService
	admin      interfaces.AdminService
}

// newDomainServices wires every domain service to the repositories and event bus of uow
func newDomainServices(uow UnitOfWork, randomness interfaces.RandomnessSource, settings Settings) *domainServices {
	bus := uow.EventBus()

	account := services.NewAccountService(
		uow.AccountRepository(),
		uow.TransactionRepository(),
		uow.WinningRepository(),
		bus,
		settings.Treasury,
	)
	draw := services.NewDrawService(
		uow.RoundRepository(),
		uow.WinningRepository(),
		account,
		randomness,
		bus,
		settings.Rules,
	)
	round := services.NewRoundService(uow.RoundRepository(), uow.AdminRepository(), draw)

	return &domainServices{
		account:    account,
		draw:       draw,
		round:      round,
		betting:    services.NewBettingService(uow.RoundRepository(), account, round, bus),
		deposit:    services.NewDepositService(uow.DepositRepository(), uow.AccountRepository(), account, bus, settings.Treasury),
		withdrawal: services.NewWithdrawalService(uow.WithdrawalRepository(), account, bus, settings.Treasury),
		stats:      services.NewStatsService(uow.StatsRepository()),
		admin:      services.NewAdminService(uow.AdminRepository(), settings.Deployer),
	}
}

// Settings are the ledger-wide parameters of the application
type Settings struct {
	Treasury            entities.Principal
	Deployer            entities.Principal
	Rules               entities.LotteryRules
	ConsolidateDeposits bool
}
