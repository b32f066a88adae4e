package entities

// SystemStats are aggregates derived from committed state
type SystemStats struct {
	TotalRounds   uint64 `json:"total_rounds"`
	TotalBets     uint64 `json:"total_bets"`
	TotalWinnings uint64 `json:"total_winnings"`
	ActiveUsers   uint64 `json:"active_users"`
	TotalDeposits uint64 `json:"total_deposits"`
}
