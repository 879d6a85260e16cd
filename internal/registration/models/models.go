package models

import (
	"time"

	pkgstrings "carreg/pkg/platform/strings"
)

const (
	// ForceActor is the actor recorded on rows written by forced registration.
	ForceActor = "Force Registerment User"
	// ForceSource is the Source value set on force-updated vehicles.
	ForceSource = "Force Registerment"
)

// Vehicle is the persisted registration record of one car. VIN is unique
// within a company and always upper case.
type Vehicle struct {
	ID                            int64      `json:"id"`
	VIN                           string     `json:"vin"`
	CompanyID                     string     `json:"company_id"`
	CustomerID                    string     `json:"customer_id"`
	CarPool                       string     `json:"car_pool,omitempty"`
	CarPoolNumber                 string     `json:"car_pool_number,omitempty"`
	RegistrationID                string     `json:"registration_id,omitempty"`
	ErpRegistrationNumber         string     `json:"erp_registration_number,omitempty"`
	ErpDeliveryNumber             string     `json:"erp_delivery_number,omitempty"`
	DeliveryDate                  *time.Time `json:"delivery_date,omitempty"`
	RegistrationDate              *time.Time `json:"registration_date,omitempty"`
	EmailAddresses                string     `json:"email_addresses,omitempty"`
	CustomerRegistrationReference string     `json:"customer_registration_reference,omitempty"`
	ErrorNotificationSent         bool       `json:"error_notification_sent,omitempty"`
	ErrorCode                     string     `json:"error_code,omitempty"`
	ErrorMessage                  string     `json:"error_message,omitempty"`
	// RemoteTransactionID correlates the record with the remote service.
	RemoteTransactionID  string           `json:"remote_transaction_id,omitempty"`
	TransactionID        string           `json:"transaction_id,omitempty"`
	TransactionState     TransactionState `json:"transaction_state,omitempty"`
	TransactionType      TransactionType  `json:"transaction_type,omitempty"`
	TransactionStartDate *time.Time       `json:"transaction_start_date,omitempty"`
	TransactionEndDate   *time.Time       `json:"transaction_end_date,omitempty"`
	Source               string           `json:"source,omitempty"`
	// IsExisting marks request entries that refer to an already stored car.
	IsExisting bool `json:"is_existing,omitempty"`
}

// HasMissingData reports whether v lacks a field the remote service requires.
func (v *Vehicle) HasMissingData() bool {
	return v.CompanyID == "" ||
		v.VIN == "" ||
		v.CustomerID == "" ||
		v.DeliveryDate == nil ||
		v.ErpDeliveryNumber == ""
}

// Clone returns a copy that shares no pointers with v.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	c.DeliveryDate = cloneTime(v.DeliveryDate)
	c.RegistrationDate = cloneTime(v.RegistrationDate)
	c.TransactionStartDate = cloneTime(v.TransactionStartDate)
	c.TransactionEndDate = cloneTime(v.TransactionEndDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// DedupeVehicles keeps the first entry per VIN and drops entries without one.
// VINs are normalised in place.
func DedupeVehicles(vehicles []*Vehicle) []*Vehicle {
	for _, v := range vehicles {
		if v != nil {
			v.VIN = NormalizeVIN(v.VIN)
		}
	}
	return pkgstrings.DedupeBy(vehicles, func(v *Vehicle) string {
		if v == nil {
			return ""
		}
		return v.VIN
	})
}

// VINs lists the keys of vehicles in order.
func VINs(vehicles []*Vehicle) []string {
	keys := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		keys = append(keys, v.VIN)
	}
	return keys
}

// HistoryEntry is an immutable snapshot of a Vehicle written on every
// persisted mutation. Labels are kept as recorded.
type HistoryEntry struct {
	ID                            int64     `json:"id"`
	VehicleID                     int64     `json:"vehicle_id"`
	VIN                           string    `json:"vin"`
	RegistrationID                string    `json:"registration_id,omitempty"`
	CompanyID                     string    `json:"company_id"`
	CustomerID                    string    `json:"customer_id"`
	CarPool                       string    `json:"car_pool,omitempty"`
	CarPoolNumber                 string    `json:"car_pool_number,omitempty"`
	ErpRegistrationNumber         string    `json:"erp_registration_number,omitempty"`
	EmailAddresses                string    `json:"email_addresses,omitempty"`
	CustomerRegistrationReference string    `json:"customer_registration_reference,omitempty"`
	ErrorNotificationSent         bool      `json:"error_notification_sent,omitempty"`
	TransactionID                 string    `json:"transaction_id,omitempty"`
	Actor                         string    `json:"actor"`
	StateLabel                    string    `json:"state"`
	TypeLabel                     string    `json:"type"`
	CreatedAt                     time.Time `json:"created_at"`
}

// NewHistoryEntry snapshots v. Labels default to the record's own state and type.
func NewHistoryEntry(v *Vehicle, actor, stateLabel, typeLabel string, createdAt time.Time) HistoryEntry {
	if stateLabel == "" && v.TransactionState.IsSet() {
		stateLabel = v.TransactionState.String()
	}
	if typeLabel == "" && v.TransactionType.IsValid() {
		typeLabel = v.TransactionType.String()
	}
	return HistoryEntry{
		VehicleID:                     v.ID,
		VIN:                           v.VIN,
		RegistrationID:                v.RegistrationID,
		CompanyID:                     v.CompanyID,
		CustomerID:                    v.CustomerID,
		CarPool:                       v.CarPool,
		CarPoolNumber:                 v.CarPoolNumber,
		ErpRegistrationNumber:         v.ErpRegistrationNumber,
		EmailAddresses:                v.EmailAddresses,
		CustomerRegistrationReference: v.CustomerRegistrationReference,
		ErrorNotificationSent:         v.ErrorNotificationSent,
		TransactionID:                 v.TransactionID,
		Actor:                         actor,
		StateLabel:                    stateLabel,
		TypeLabel:                     typeLabel,
		CreatedAt:                     createdAt,
	}
}

// TransactionBatch is the unit opened by BeginTransaction.
type TransactionBatch struct {
	TransactionID string
	CompanyID     string
	CustomerID    string
	VINs          []string
	Type          TransactionType
	CarPoolNumber string
	Actor         string
}

// SaveResult is returned by the store after persisting incoming registrations.
type SaveResult struct {
	Saved             []string
	AlreadyRegistered bool
}
