package models

// StatusSuccess is the remote status for an accepted registration.
const StatusSuccess = "SUCCESS"

// RemoteResponse is the reply of the remote registration service. A nil
// *RemoteResponse means the call produced no answer at all.
type RemoteResponse struct {
	RegistrationID string `json:"registration_id,omitempty"`
	// TransactionID is the correlation id; when set it marks a
	// ship-to-level error described by ErrorCode and ErrorMessage.
	TransactionID string   `json:"transaction_id,omitempty"`
	Status        string   `json:"status"`
	ErrorCode     string   `json:"error_code,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// IsSuccess reports a registration id together with status SUCCESS.
func (r *RemoteResponse) IsSuccess() bool {
	return r != nil && r.RegistrationID != "" && r.Status == StatusSuccess
}

// IsErrorBearing reports a correlation id or an error list.
func (r *RemoteResponse) IsErrorBearing() bool {
	return r != nil && (r.TransactionID != "" || r.Errors != nil)
}

// RequestContext carries tenant-level settings sent with every bulk request.
type RequestContext struct {
	ShipTo       string `json:"ship_to"`
	LanguageCode string `json:"language_code"`
	TimeZone     string `json:"time_zone"`
}

// BulkRegistrationRequest is the payload of ExecuteRegistration.
type BulkRegistrationRequest struct {
	TransactionID  string                `json:"transaction_id"`
	CompanyID      string                `json:"company_id"`
	RequestContext RequestContext        `json:"request_context"`
	Registrations  []RegistrationRequest `json:"registrations"`
}

type RegistrationRequest struct {
	RegistrationNumber string            `json:"registration_number"`
	CustomerID         string            `json:"customer_id"`
	RegistrationDate   string            `json:"registration_date"`
	RegistrationType   string            `json:"registration_type"`
	Deliveries         []DeliveryRequest `json:"deliveries,omitempty"`
}

type DeliveryRequest struct {
	DeliveryNumber string       `json:"delivery_number"`
	DeliveryDate   string       `json:"delivery_date"`
	Cars           []CarRequest `json:"cars"`
}

type CarRequest struct {
	VIN      string `json:"vin"`
	AssetTag string `json:"asset_tag"`
}

// SubsequentRegistrationRequest re-submits corrected data for a vehicle the
// remote service already knows.
type SubsequentRegistrationRequest struct {
	RegistrationNumber string `json:"registration_number"`
	VIN                string `json:"vin"`
	CompanyID          string `json:"company_id"`
	CustomerID         string `json:"customer_id"`
	CarPoolNumber      string `json:"car_pool_number,omitempty"`
	EmailAddresses     string `json:"email_addresses,omitempty"`
}

type SubsequentRegistrationResponse struct {
	Status        string         `json:"status"`
	ActionResults []ActionResult `json:"action_results"`
}

type ActionResult struct {
	TransactionID    string  `json:"transaction_id"`
	Message          string  `json:"message"`
	RegisteredCarIDs []int64 `json:"registered_car_ids"`
}
