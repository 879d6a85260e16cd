package models

// Result messages returned to callers of RegisterCars.
const (
	MessageSuccess         = "SUCCESS"
	MessageError           = "ERROR"
	MessageMissingData     = "MissingData"
	MessageActionRequired  = "ActionRequired"
	MessageAlreadyEnrolled = "ALREADY_ENROLLED"
	MessageForceError      = "FORCE_ERROR"
)

// ServiceResult is the caller-facing outcome of a registration request.
type ServiceResult struct {
	TransactionID    string  `json:"transaction_id,omitempty"`
	RegistrationID   string  `json:"registration_id,omitempty"`
	RegisteredCarIDs []int64 `json:"registered_car_ids"`
	TransactionState string  `json:"transaction_state"`
	Message          string  `json:"message"`
}

// RegisterCarsRequest is one batch submitted for registration.
type RegisterCarsRequest struct {
	CompanyID                  string          `json:"company_id"`
	CustomerID                 string          `json:"customer_id"`
	Cars                       []*Vehicle      `json:"cars"`
	Forced                     bool            `json:"forced"`
	DeactivateAutoRegistration bool            `json:"deactivate_auto_registration"`
	Brand                      string          `json:"brand,omitempty"`
	Type                       TransactionType `json:"type,omitempty"`
	Actor                      string          `json:"-"`
}
