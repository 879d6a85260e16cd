package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carreg/internal/registration/models"
	audit "carreg/pkg/platform/audit"
	dErrors "carreg/pkg/domain-errors"
	"carreg/pkg/platform/sentinel"
)

// forcedVehicle tracks one vehicle through a forced pass.
type forcedVehicle struct {
	current  *models.Vehicle
	snapshot time.Time
}

// ForceRegistration pushes corrected data for the already stored cars of
// req straight to the remote service. When the remote call fails, every
// touched vehicle is reverted and the result carries FORCE_ERROR together
// with a KindForcedRegistration error.
func (s *Service) ForceRegistration(ctx context.Context, req models.RegisterCarsRequest) (models.ServiceResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.ForceRegistration")
	defer span.End()

	existing := make([]*models.Vehicle, 0, len(req.Cars))
	for _, car := range req.Cars {
		if car != nil && car.IsExisting {
			existing = append(existing, car)
		}
	}
	span.SetAttributes(attribute.Int("vehicles", len(existing)))
	if len(existing) == 0 {
		return models.ServiceResult{Message: models.MessageSuccess, RegisteredCarIDs: []int64{}}, nil
	}

	release, err := s.locker.Acquire(ctx, models.VINs(existing))
	if err != nil {
		return s.forceFailed(ctx, span, nil, err, req.Actor)
	}
	defer release()

	forced, err := s.applyForcedValues(ctx, req, existing)
	if err != nil {
		return s.forceFailed(ctx, span, forced, err, req.Actor)
	}

	requests := make([]models.SubsequentRegistrationRequest, 0, len(forced))
	for _, f := range forced {
		requests = append(requests, models.SubsequentRegistrationRequest{
			RegistrationNumber: f.current.CarPoolNumber,
			VIN:                f.current.VIN,
			CompanyID:          f.current.CompanyID,
			CustomerID:         f.current.CustomerID,
			CarPoolNumber:      f.current.CarPoolNumber,
			EmailAddresses:     f.current.EmailAddresses,
		})
	}

	start := time.Now()
	resp, err := s.remote.ExecuteSubsequentRegistration(ctx, requests)
	if s.metrics != nil {
		s.metrics.ObserveRemoteCall(start)
	}
	if err == nil {
		err = subsequentFailure(resp)
	}
	if err != nil {
		return s.forceFailed(ctx, span, forced, err, req.Actor)
	}

	result := models.ServiceResult{
		Message:          models.MessageSuccess,
		TransactionState: notApplicable,
		RegisteredCarIDs: []int64{},
	}
	for _, item := range resp.ActionResults {
		result.TransactionID = item.TransactionID
		result.RegisteredCarIDs = append(result.RegisteredCarIDs, item.RegisteredCarIDs...)
	}
	return result, nil
}

// applyForcedValues snapshots and rewrites each existing vehicle. The
// vehicles processed so far are returned even on error so they can be
// reverted.
func (s *Service) applyForcedValues(ctx context.Context, req models.RegisterCarsRequest, existing []*models.Vehicle) ([]forcedVehicle, error) {
	var records []*models.Vehicle
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.GetRecords(ctx, models.VINs(existing))
		return err
	})
	if err != nil {
		return nil, err
	}
	byVIN := indexByVIN(records)

	forced := make([]forcedVehicle, 0, len(existing))
	for _, requested := range existing {
		current, ok := byVIN[requested.VIN]
		if !ok {
			return forced, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("vehicle %s not found", requested.VIN))
		}

		var snapshot time.Time
		err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
			latest, err := s.store.GetLatestHistoryEntry(ctx, current.VIN)
			if err != nil {
				return err
			}
			if latest != nil {
				snapshot = latest.CreatedAt
			}
			return nil
		})
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return forced, err
		}

		values := overlay(current, requested, req)
		if err := s.AssignCarValuesForUpdate(ctx, current, values, models.ForceActor, models.ForceSource, true); err != nil {
			return forced, err
		}
		forced = append(forced, forcedVehicle{current: current, snapshot: snapshot})
	}
	return forced, nil
}

// overlay returns current with every non-empty field of requested applied.
func overlay(current, requested *models.Vehicle, req models.RegisterCarsRequest) *models.Vehicle {
	values := current.Clone()
	setIfPresent := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	setIfPresent(&values.CompanyID, requested.CompanyID)
	setIfPresent(&values.CompanyID, req.CompanyID)
	setIfPresent(&values.CustomerID, requested.CustomerID)
	if requested.CustomerID == "" {
		setIfPresent(&values.CustomerID, req.CustomerID)
	}
	setIfPresent(&values.CarPool, requested.CarPool)
	setIfPresent(&values.CarPoolNumber, requested.CarPoolNumber)
	setIfPresent(&values.ErpRegistrationNumber, requested.ErpRegistrationNumber)
	setIfPresent(&values.ErpDeliveryNumber, requested.ErpDeliveryNumber)
	setIfPresent(&values.EmailAddresses, requested.EmailAddresses)
	setIfPresent(&values.CustomerRegistrationReference, requested.CustomerRegistrationReference)
	if requested.DeliveryDate != nil {
		values.DeliveryDate = requested.DeliveryDate
	}
	if requested.RegistrationDate != nil {
		values.RegistrationDate = requested.RegistrationDate
	}
	return values
}

func subsequentFailure(resp *models.SubsequentRegistrationResponse) error {
	if resp == nil {
		return dErrors.New(dErrors.CodeUnavailable, "subsequent registration returned no response")
	}
	if resp.Status != models.StatusSuccess {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("subsequent registration status %q", resp.Status))
	}
	for _, item := range resp.ActionResults {
		if item.Message != models.StatusSuccess {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("subsequent registration item %s: %s", item.TransactionID, item.Message))
		}
	}
	return nil
}

// forceFailed reverts every vehicle touched by the forced pass.
func (s *Service) forceFailed(ctx context.Context, span trace.Span, forced []forcedVehicle, cause error, actor string) (models.ServiceResult, error) {
	err := s.spanError(span, newError(KindForcedRegistration, cause, dErrors.CodeConflict, "forced registration failed"))
	s.logger.ErrorContext(ctx, "forced registration failed",
		"vehicles", len(forced),
		"error", cause,
	)

	var fallback []int64
	for _, f := range forced {
		if !s.RevertCarData(ctx, f.current.ID, f.snapshot, actor) {
			fallback = append(fallback, f.current.ID)
		}
	}
	if len(fallback) > 0 {
		s.HandleRevert(ctx, fallback, actor, true)
	}

	if s.metrics != nil {
		s.metrics.IncrementForcedFailure()
	}
	for _, f := range forced {
		s.logAudit(ctx, audit.Event{
			Action:        string(audit.EventForceFailed),
			Subject:       f.current.VIN,
			TransactionID: f.current.TransactionID,
			CompanyID:     f.current.CompanyID,
			Decision:      models.MessageForceError,
			Reason:        cause.Error(),
			ActorID:       actor,
		})
	}
	return models.ServiceResult{
		Message:          models.MessageForceError,
		TransactionState: notApplicable,
		RegisteredCarIDs: []int64{},
	}, err
}
