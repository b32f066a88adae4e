package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"btclotto/domain/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// SourceService identifies this service in event envelopes
const SourceService = "btclotto"

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}

// messagePublisher is the subset of NATSClient the publisher needs
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	EnsureStream(streamName string, subjects []string) error
}

// NATSEventPublisher publishes domain events to NATS JetStream
type NATSEventPublisher struct {
	localHandlerRegistry
	natsClient    messagePublisher
	subjectMapper *EventSubjectMapper
	metrics       PublishRecorder
}

// PublishRecorder counts published events
type PublishRecorder interface {
	RecordEventPublished(eventType string, err error)
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(natsClient messagePublisher, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
	}
}

// WithMetrics attaches a recorder for published events
func (p *NATSEventPublisher) WithMetrics(recorder PublishRecorder) *NATSEventPublisher {
	p.metrics = recorder
	return p
}

// Publish runs local handlers, then publishes the event in an envelope
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()

	p.dispatch(ctx, event)

	subject := p.subjectMapper.MapEventToSubject(event)
	envelopeData, envelopeID, err := NewEnvelope(event)
	if err != nil {
		return err
	}

	err = p.natsClient.Publish(ctx, subject, envelopeData)
	if p.metrics != nil {
		p.metrics.RecordEventPublished(string(event.Type()), err)
	}
	if err != nil {
		// No stream bound to the subject yet; the event has no consumers.
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventID":   envelopeID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureDomainEventStream ensures the ledger event stream exists
func (p *NATSEventPublisher) EnsureDomainEventStream() error {
	return p.natsClient.EnsureStream(DomainEventStream, p.subjectMapper.GetAllSubjects())
}

// NewEnvelope serializes an event inside a fresh envelope
func NewEnvelope(event events.Event) ([]byte, string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     timestamppb.Now(),
		SourceService: SourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, envelope.EventID, nil
}
