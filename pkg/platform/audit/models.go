package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers changes to registration data of record:
	// state transitions and reverts that must be reconstructible later.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility, such as forced-registration failures.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the vehicle identification number, or the transaction id
	// for batch-level events.
	Subject       string
	Action        string
	TransactionID string
	CompanyID     string
	// Decision carries the resulting transaction state or result message.
	Decision  string
	Reason    string
	RequestID string
	ActorID   string
}

type AuditEvent string

const (
	EventTransactionBegun    AuditEvent = "registration_transaction_begun"
	EventTransactionFinished AuditEvent = "registration_transaction_finished"
	EventVehicleReverted     AuditEvent = "registration_vehicle_reverted"
	EventForceFailed         AuditEvent = "registration_force_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventTransactionBegun:    CategoryCompliance,
	EventTransactionFinished: CategoryCompliance,
	EventVehicleReverted:     CategoryCompliance,
	EventForceFailed:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
