package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"btclotto/config"
	"btclotto/domain/entities"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	betsCounter                metric.Int64Counter
	betVolumeCounter           metric.Int64Counter
	settlementsCounter         metric.Int64Counter
	prizesPaidCounter          metric.Int64Counter
	roundEntriesHist           metric.Int64Histogram
	depositsCounter            metric.Int64Counter
	depositVolumeCounter       metric.Int64Counter
	withdrawalsCounter         metric.Int64Counter
	externalCallFailureCounter metric.Int64Counter
	invariantViolationCounter  metric.Int64Counter
	eventsPublishedCounter     metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the meter provider with the configured exporter
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	var exporter sdkmetric.Exporter
	var err error

	switch mp.config.MetricsExporter {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTLPEndpoint).Info("Using OTLP metric exporter")

	case "none", "":
		mp.mu.Lock()
		mp.initialized = true
		mp.mu.Unlock()
		log.Info("Metrics export disabled")
		return nil

	default:
		return fmt.Errorf("unknown metrics exporter: %s", mp.config.MetricsExporter)
	}

	return mp.InitializeWithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(mp.config.MetricsInterval)))
}

// InitializeWithReader sets up the meter provider around the given reader
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("btclotto")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&mp.betsCounter, BetsTotal, "Total number of accepted bets", "1"},
		{&mp.betVolumeCounter, BetVolumeTotal, "Total amount wagered in smallest units", "1"},
		{&mp.settlementsCounter, SettlementsTotal, "Total number of settled rounds", "1"},
		{&mp.prizesPaidCounter, PrizesPaidTotal, "Total prize amount credited to winners", "1"},
		{&mp.depositsCounter, DepositsTotal, "Total number of credited deposits", "1"},
		{&mp.depositVolumeCounter, DepositVolumeTotal, "Total deposited amount in smallest units", "1"},
		{&mp.withdrawalsCounter, WithdrawalsTotal, "Total number of finished withdrawals", "1"},
		{&mp.externalCallFailureCounter, ExternalCallFailuresTotal, "Total number of failed external ledger calls", "1"},
		{&mp.invariantViolationCounter, InvariantViolationsTotal, "Total number of detected invariant violations", "1"},
		{&mp.eventsPublishedCounter, EventsPublishedTotal, "Total number of events published to NATS", "1"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.roundEntriesHist, err = mp.meter.Int64Histogram(
		RoundEntries,
		metric.WithDescription("Number of entries in settled rounds"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100, 250, 1000),
	)
	if err != nil {
		return fmt.Errorf("failed to create round entries histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) RecordBet(amount uint64) {
	if !mp.isEnabled() {
		return
	}
	ctx := context.Background()
	mp.betsCounter.Add(ctx, 1)
	mp.betVolumeCounter.Add(ctx, clampInt64(amount))
}

func (mp *MetricsProvider) RecordSettlement(entries int, prizePool uint64, hasWinner bool) {
	if !mp.isEnabled() {
		return
	}
	ctx := context.Background()
	mp.settlementsCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool(LabelHasWinner, hasWinner)))
	mp.roundEntriesHist.Record(ctx, int64(entries))
	if hasWinner {
		mp.prizesPaidCounter.Add(ctx, clampInt64(prizePool))
	}
}

func (mp *MetricsProvider) RecordDeposit(amount uint64) {
	if !mp.isEnabled() {
		return
	}
	ctx := context.Background()
	mp.depositsCounter.Add(ctx, 1)
	mp.depositVolumeCounter.Add(ctx, clampInt64(amount))
}

func (mp *MetricsProvider) RecordWithdrawal(amount uint64, status entities.WithdrawalStatus) {
	if !mp.isEnabled() {
		return
	}
	mp.withdrawalsCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String(LabelStatus, string(status))))
}

func (mp *MetricsProvider) RecordExternalCallFailure(operation string) {
	if !mp.isEnabled() {
		return
	}
	mp.externalCallFailureCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String(LabelOperation, operation)))
}

func (mp *MetricsProvider) RecordInvariantViolation() {
	if !mp.isEnabled() {
		return
	}
	mp.invariantViolationCounter.Add(context.Background(), 1)
}

// RecordEventPublished counts an attempted NATS publish
func (mp *MetricsProvider) RecordEventPublished(eventType string, err error) {
	if !mp.isEnabled() {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	mp.eventsPublishedCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(LabelEventType, eventType),
		attribute.String(LabelResult, result),
	))
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}

func clampInt64(v uint64) int64 {
	if v > uint64(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(v)
}
