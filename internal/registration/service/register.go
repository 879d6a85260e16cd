package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carreg/internal/registration/brand"
	"carreg/internal/registration/models"
	dErrors "carreg/pkg/domain-errors"
	"carreg/pkg/requestcontext"
)

// RegisterCars runs one registration request end to end: save, begin,
// remote call and finish. Every business outcome is reported through the
// result message; errors are reserved for bad input and infrastructure.
func (s *Service) RegisterCars(ctx context.Context, req models.RegisterCarsRequest) (models.ServiceResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.RegisterCars",
		trace.WithAttributes(
			attribute.String("company.id", req.CompanyID),
			attribute.Bool("forced", req.Forced),
		))
	defer span.End()

	result, err := s.registerCars(ctx, req)
	if err != nil {
		span.RecordError(err)
		return models.ServiceResult{}, err
	}
	span.SetAttributes(attribute.String("result.message", result.Message))
	if s.metrics != nil {
		s.metrics.IncrementResult(result.Message)
	}
	return result, nil
}

func (s *Service) registerCars(ctx context.Context, req models.RegisterCarsRequest) (models.ServiceResult, error) {
	if strings.TrimSpace(req.CompanyID) == "" {
		return models.ServiceResult{}, dErrors.New(dErrors.CodeBadRequest, "company_id is required")
	}
	cars := models.DedupeVehicles(req.Cars)
	if len(cars) == 0 {
		return models.ServiceResult{}, dErrors.New(dErrors.CodeBadRequest, "at least one car with a vin is required")
	}
	regType := req.Type
	if regType == 0 {
		regType = models.TypeRegister
	}
	if !regType.IsValid() {
		return models.ServiceResult{}, dErrors.New(dErrors.CodeBadRequest, "unsupported registration type")
	}
	policy, err := s.policyFor(req.Brand)
	if err != nil {
		return models.ServiceResult{}, err
	}
	if req.Actor == "" {
		req.Actor = requestcontext.Actor(ctx)
	}
	req.Cars = cars

	if req.Forced && !req.DeactivateAutoRegistration {
		forced, err := s.ForceRegistration(ctx, req)
		if err != nil {
			return forced, nil
		}
		cars = newCars(cars)
		if len(cars) == 0 {
			return forced, nil
		}
	}

	registrationID, registrationNumber := policy.GenerateRegistration(cars[0].CarPool)
	yesterday := startOfDay(requestcontext.Now(ctx)).AddDate(0, 0, -1)
	for _, car := range cars {
		car.CarPoolNumber = registrationNumber
		car.RegistrationID = registrationID
		// Cars without an ERP registration get delivery defaults, but only
		// for the fields the caller left empty.
		if strings.TrimSpace(car.ErpRegistrationNumber) == "" {
			if car.DeliveryDate == nil {
				delivery := yesterday
				car.DeliveryDate = &delivery
			}
			if strings.TrimSpace(car.ErpDeliveryNumber) == "" {
				car.ErpDeliveryNumber = registrationID
			}
		}
		if car.CompanyID == "" {
			car.CompanyID = req.CompanyID
		}
		if car.CustomerID == "" {
			car.CustomerID = req.CustomerID
		}
		if car.HasMissingData() {
			car.TransactionState = models.StateMissingData
		}
	}

	var saved models.SaveResult
	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.store.SaveRegistrations(ctx, cars, req.Actor, req.Forced)
		return err
	})
	if err != nil {
		return models.ServiceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registrations")
	}
	if saved.AlreadyRegistered {
		return models.ServiceResult{
			RegistrationID:   registrationID,
			RegisteredCarIDs: []int64{},
			TransactionState: notApplicable,
			Message:          models.MessageAlreadyEnrolled,
		}, nil
	}

	// Deactivated auto-registration stores the cars but never calls out.
	if len(saved.Saved) == 0 || req.DeactivateAutoRegistration {
		return s.markUnregistrable(ctx, req, registrationID)
	}

	ready := readyCars(cars, saved.Saved)
	if len(ready) == 0 {
		return models.ServiceResult{
			RegistrationID:   registrationID,
			RegisteredCarIDs: []int64{},
			TransactionState: notApplicable,
			Message:          models.MessageMissingData,
		}, nil
	}
	return s.register(ctx, req, ready, regType, registrationID, registrationNumber)
}

// register holds the vehicle locks from Begin until Finish has persisted.
func (s *Service) register(
	ctx context.Context,
	req models.RegisterCarsRequest,
	cars []*models.Vehicle,
	regType models.TransactionType,
	registrationID, registrationNumber string,
) (models.ServiceResult, error) {
	vins := models.VINs(cars)
	release, err := s.locker.Acquire(ctx, vins)
	if err != nil {
		return models.ServiceResult{}, err
	}
	defer release()

	var records []*models.Vehicle
	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.GetRecords(ctx, vins)
		return err
	})
	if err != nil {
		return models.ServiceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vehicles")
	}
	prior := indexByVIN(records)

	txID, err := s.BeginTransaction(ctx, models.TransactionBatch{
		CompanyID:     req.CompanyID,
		CustomerID:    req.CustomerID,
		VINs:          vins,
		Type:          regType,
		CarPoolNumber: registrationNumber,
		Actor:         req.Actor,
	})
	if err != nil {
		return models.ServiceResult{}, err
	}

	resp := s.callRemote(ctx, MapToRequest(cars, regType, txID, req.CompanyID, s.requestContext))

	var updated []int64
	for _, group := range groupByPriorState(vins, prior) {
		ids, err := s.FinishTransaction(ctx, regType, resp, group.vins, req.CompanyID, req.Actor, group.backup)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to finish transaction",
				"transaction_id", txID,
				"registration_id", registrationID,
				"error", err,
			)
			continue
		}
		updated = append(updated, ids...)
	}
	return MapToResult(resp, updated, txID, registrationID), nil
}

// callRemote treats a failed or cancelled call as no response at all.
func (s *Service) callRemote(ctx context.Context, req models.BulkRegistrationRequest) *models.RemoteResponse {
	if err := ctx.Err(); err != nil {
		s.logger.WarnContext(ctx, "registration cancelled before remote call",
			"transaction_id", req.TransactionID,
			"error", err,
		)
		return nil
	}

	start := time.Now()
	resp, err := s.remote.ExecuteRegistration(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveRemoteCall(start)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.logger.WarnContext(ctx, "remote registration failed, finishing without response",
			"transaction_id", req.TransactionID,
			"error", err,
		)
		return nil
	}
	return resp
}

// markUnregistrable records why nothing of the registration was saved.
func (s *Service) markUnregistrable(ctx context.Context, req models.RegisterCarsRequest, registrationID string) (models.ServiceResult, error) {
	var records []*models.Vehicle
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.GetRecordsByRegistrationID(ctx, registrationID)
		return err
	})
	if err != nil {
		return models.ServiceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	message := models.MessageMissingData
	if req.DeactivateAutoRegistration {
		message = models.MessageActionRequired
	}
	for _, v := range records {
		v.TransactionState = models.StateMissingData
		if req.DeactivateAutoRegistration && !v.HasMissingData() {
			v.TransactionState = models.StateActionRequired
		} else {
			message = models.MessageMissingData
		}
		err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
			return s.store.UpdateRecord(ctx, v, req.Actor, false)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to mark vehicle state",
				"vin", v.VIN,
				"state", v.TransactionState.String(),
				"error", err,
			)
		}
	}
	return models.ServiceResult{
		RegistrationID:   registrationID,
		RegisteredCarIDs: []int64{},
		TransactionState: notApplicable,
		Message:          message,
	}, nil
}

func (s *Service) policyFor(name string) (brand.Policy, error) {
	b := s.defaultBrand
	if name != "" {
		parsed, err := brand.ParseBrand(name)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unsupported brand")
		}
		b = parsed
	}
	policy, err := brand.ForBrand(b, s.brandIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "brand policy unavailable")
	}
	return policy, nil
}

func newCars(cars []*models.Vehicle) []*models.Vehicle {
	out := make([]*models.Vehicle, 0, len(cars))
	for _, car := range cars {
		if !car.IsExisting {
			out = append(out, car)
		}
	}
	return out
}

// readyCars keeps the saved cars that have complete data.
func readyCars(cars []*models.Vehicle, saved []string) []*models.Vehicle {
	savedSet := make(map[string]struct{}, len(saved))
	for _, vin := range saved {
		savedSet[models.NormalizeVIN(vin)] = struct{}{}
	}
	out := make([]*models.Vehicle, 0, len(cars))
	for _, car := range cars {
		if _, ok := savedSet[car.VIN]; ok && car.TransactionState != models.StateMissingData {
			out = append(out, car)
		}
	}
	return out
}

type priorGroup struct {
	backup *models.TransactionState
	vins   []string
}

// groupByPriorState splits vins by the state each record held before Begin.
// Records that had no state finish without a backup.
func groupByPriorState(vins []string, prior map[string]*models.Vehicle) []priorGroup {
	var groups []priorGroup
	index := make(map[models.TransactionState]int)
	for _, vin := range vins {
		state := models.StateNone
		if v, ok := prior[vin]; ok {
			state = v.TransactionState
		}
		i, ok := index[state]
		if !ok {
			g := priorGroup{}
			if state.IsSet() {
				g.backup = state.Ptr()
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[state] = i
		}
		groups[i].vins = append(groups[i].vins, vin)
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
