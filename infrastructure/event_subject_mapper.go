package infrastructure

import (
	"fmt"

	"btclotto/domain/events"
)

// DomainEventStream is the JetStream stream holding every published ledger event
const DomainEventStream = "ledger_events"

const subjectPrefix = "ledger.events."

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var subjectsByType = map[events.EventType]string{
	events.EventTypeBalanceChange:     subjectPrefix + "balance_changed",
	events.EventTypeUserCreated:       subjectPrefix + "user_created",
	events.EventTypeBetPlaced:         subjectPrefix + "bet_placed",
	events.EventTypeRoundOpened:       subjectPrefix + "round_opened",
	events.EventTypeRoundSettled:      subjectPrefix + "round_settled",
	events.EventTypeDepositConfirmed:  subjectPrefix + "deposit_confirmed",
	events.EventTypeWithdrawalChanged: subjectPrefix + "withdrawal_changed",
	events.EventTypeAccountFrozen:     subjectPrefix + "account_frozen",
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("%sunknown.%s", subjectPrefix, event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, candidate := range subjectsByType {
		if candidate == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the subject filter of the domain event stream
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{subjectPrefix + ">"}
}
