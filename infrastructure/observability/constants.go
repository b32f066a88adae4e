package observability

// Metric name prefixes
const (
	MetricPrefix = "btclotto"
)

// Metric names
const (
	BetsTotal        = MetricPrefix + ".bets.total"
	BetVolumeTotal   = MetricPrefix + ".bets.volume_total"
	SettlementsTotal = MetricPrefix + ".rounds.settlements_total"
	PrizesPaidTotal  = MetricPrefix + ".rounds.prizes_paid_total"
	RoundEntries     = MetricPrefix + ".rounds.entries"

	DepositsTotal      = MetricPrefix + ".deposits.total"
	DepositVolumeTotal = MetricPrefix + ".deposits.volume_total"
	WithdrawalsTotal   = MetricPrefix + ".withdrawals.total"

	ExternalCallFailuresTotal = MetricPrefix + ".ledger.call_failures_total"
	InvariantViolationsTotal  = MetricPrefix + ".ledger.invariant_violations_total"

	EventsPublishedTotal = MetricPrefix + ".events.published_total"
)

// Label keys
const (
	LabelEventType = "event_type"
	LabelResult    = "result"
	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelHasWinner = "has_winner"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
)
