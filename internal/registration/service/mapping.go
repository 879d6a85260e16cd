package service

import (
	"fmt"
	"time"

	"carreg/internal/registration/models"
)

const notApplicable = "n/a"

// MapToRequest builds the bulk payload for vehicles, one registration per
// carpool number in order of first appearance.
func MapToRequest(
	vehicles []*models.Vehicle,
	regType models.TransactionType,
	transactionID, companyID string,
	reqCtx models.RequestContext,
) models.BulkRegistrationRequest {
	req := models.BulkRegistrationRequest{
		TransactionID:  transactionID,
		CompanyID:      companyID,
		RequestContext: reqCtx,
		Registrations:  []models.RegistrationRequest{},
	}

	var order []string
	groups := make(map[string][]*models.Vehicle)
	for _, v := range vehicles {
		if _, seen := groups[v.CarPoolNumber]; !seen {
			order = append(order, v.CarPoolNumber)
		}
		groups[v.CarPoolNumber] = append(groups[v.CarPoolNumber], v)
	}

	for _, number := range order {
		cars := groups[number]
		registration := models.RegistrationRequest{
			RegistrationNumber: number,
			CustomerID:         cars[0].CustomerID,
			RegistrationDate:   formatRemoteDate(earliestRegistrationDate(cars)),
			RegistrationType:   regType.String(),
		}
		if regType != models.TypeReset {
			registration.Deliveries = mapDeliveries(cars)
		}
		req.Registrations = append(req.Registrations, registration)
	}
	return req
}

type deliveryKey struct {
	date   string
	number string
}

func mapDeliveries(cars []*models.Vehicle) []models.DeliveryRequest {
	var order []deliveryKey
	groups := make(map[deliveryKey][]models.CarRequest)
	for _, v := range cars {
		key := deliveryKey{date: formatRemoteDate(v.DeliveryDate), number: v.ErpDeliveryNumber}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], models.CarRequest{VIN: v.VIN})
	}

	deliveries := make([]models.DeliveryRequest, 0, len(order))
	for _, key := range order {
		deliveries = append(deliveries, models.DeliveryRequest{
			DeliveryNumber: key.number,
			DeliveryDate:   key.date,
			Cars:           groups[key],
		})
	}
	return deliveries
}

func earliestRegistrationDate(cars []*models.Vehicle) *time.Time {
	var earliest *time.Time
	for _, v := range cars {
		if v.RegistrationDate == nil {
			continue
		}
		if earliest == nil || v.RegistrationDate.Before(*earliest) {
			earliest = v.RegistrationDate
		}
	}
	return earliest
}

// formatRemoteDate renders t the way the remote service expects: month and
// day unpadded, time of day padded.
func formatRemoteDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	u := t.UTC()
	return fmt.Sprintf("%d-%d-%dT%02d:%02d:%02dZ",
		u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second())
}

// MapToResult summarises a registration pass for the caller.
func MapToResult(resp *models.RemoteResponse, updatedIDs []int64, transactionID, registrationID string) models.ServiceResult {
	ids := updatedIDs
	if ids == nil {
		ids = []int64{}
	}
	result := models.ServiceResult{
		TransactionID:    transactionID,
		RegistrationID:   registrationID,
		RegisteredCarIDs: ids,
		TransactionState: notApplicable,
		Message:          models.MessageError,
	}
	if resp != nil && resp.RegistrationID != "" {
		result.Message = models.MessageSuccess
	}
	return result
}
