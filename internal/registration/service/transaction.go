package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carreg/internal/registration/models"
	"carreg/internal/registration/reconcile"
	audit "carreg/pkg/platform/audit"
	dErrors "carreg/pkg/domain-errors"
	"carreg/pkg/requestcontext"
)

// BeginTransaction opens a transaction over batch.VINs and returns its id.
//
// Records are persisted one at a time. A failure stops the loop and the
// records already written stay written. An existing state is never replaced,
// so a repeated Begin cannot erase a prior outcome.
func (s *Service) BeginTransaction(ctx context.Context, batch models.TransactionBatch) (string, error) {
	ctx, span := s.tracer.Start(ctx, "registration.BeginTransaction",
		trace.WithAttributes(attribute.Int("vehicles", len(batch.VINs))))
	defer span.End()

	txID := batch.TransactionID
	if txID == "" {
		generated, err := s.txIDs.Next()
		if err != nil {
			return "", s.spanError(span, newError(KindIDGeneration, err, dErrors.CodeInternal, "failed to generate transaction id"))
		}
		txID = generated
	}
	span.SetAttributes(attribute.String("transaction.id", txID))

	var records []*models.Vehicle
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.GetRecords(ctx, batch.VINs)
		return err
	})
	if err != nil {
		return "", s.spanError(span, newError(KindBegin, err, dErrors.CodeInternal, "failed to load vehicles"))
	}
	byVIN := indexByVIN(records)

	start := requestcontext.Now(ctx)
	for _, vin := range batch.VINs {
		if err := ctx.Err(); err != nil {
			return "", s.spanError(span, newError(KindBegin, err, dErrors.CodeTimeout, "transaction begin cancelled"))
		}
		v, ok := byVIN[vin]
		if !ok {
			return "", s.spanError(span, newError(KindBegin,
				dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("vehicle %s not found", vin)),
				dErrors.CodeInternal, "failed to begin transaction"))
		}

		v.TransactionID = txID
		if batch.CarPoolNumber != "" {
			v.CarPoolNumber = batch.CarPoolNumber
		}
		v.ErrorCode = ""
		v.ErrorMessage = ""
		v.TransactionEndDate = nil
		v.TransactionType = batch.Type
		if !v.TransactionState.IsSet() {
			v.TransactionState = models.StateNotRegistered
		}
		v.TransactionStartDate = &start

		err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
			return s.store.UpdateRecord(ctx, v, batch.Actor, true)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to begin transaction for vehicle",
				"vin", vin,
				"transaction_id", txID,
				"error", err,
			)
			return "", s.spanError(span, newError(KindBegin, err, dErrors.CodeInternal, "failed to persist vehicle"))
		}
	}

	s.logAudit(ctx, audit.Event{
		Action:        string(audit.EventTransactionBegun),
		Subject:       txID,
		TransactionID: txID,
		CompanyID:     batch.CompanyID,
		Decision:      batch.Type.String(),
		ActorID:       batch.Actor,
	})
	if s.metrics != nil {
		s.metrics.IncrementBegun()
	}
	return txID, nil
}

// FinishTransaction reconciles resp into every record of vins and returns
// the ids that were persisted. It runs to completion even when ctx is
// already cancelled; a failed record is logged and skipped.
func (s *Service) FinishTransaction(
	ctx context.Context,
	regType models.TransactionType,
	resp *models.RemoteResponse,
	vins []string,
	companyID string,
	actor string,
	backup *models.TransactionState,
) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.finishTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "registration.FinishTransaction",
		trace.WithAttributes(
			attribute.Int("vehicles", len(vins)),
			attribute.String("registration.type", regType.String()),
			attribute.Bool("remote.response", resp != nil),
		))
	defer span.End()

	var records []*models.Vehicle
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.GetRecords(ctx, vins)
		return err
	})
	if err != nil {
		return nil, s.spanError(span, newError(KindFinish, err, dErrors.CodeInternal, "failed to load vehicles"))
	}

	updated := make([]int64, 0, len(records))
	for _, v := range records {
		outcome, err := s.finishOne(ctx, v, regType, resp, companyID, actor, backup)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to finish transaction for vehicle",
				"vin", v.VIN,
				"transaction_id", v.TransactionID,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.IncrementFinishFailure()
			}
			continue
		}
		updated = append(updated, v.ID)
		if s.metrics != nil {
			s.metrics.IncrementFinished(outcome.String())
		}
		s.logAudit(ctx, audit.Event{
			Action:        string(audit.EventTransactionFinished),
			Subject:       v.VIN,
			TransactionID: v.TransactionID,
			CompanyID:     v.CompanyID,
			Decision:      v.TransactionState.String(),
			Reason:        outcome.String(),
			ActorID:       actor,
		})
	}
	span.SetAttributes(attribute.Int("vehicles.updated", len(updated)))
	return updated, nil
}

func (s *Service) finishOne(
	ctx context.Context,
	v *models.Vehicle,
	regType models.TransactionType,
	resp *models.RemoteResponse,
	companyID string,
	actor string,
	backup *models.TransactionState,
) (reconcile.Outcome, error) {
	v.TransactionType = regType
	if companyID != "" {
		v.CompanyID = companyID
	}

	first := true
	if reconcile.NeedsHistory(resp, regType) {
		var err error
		first, err = s.IsFirstTransaction(ctx, v.VIN, v.RegistrationID)
		if err != nil {
			return 0, err
		}
	}

	newState := reconcile.Resolve(resp, regType, backup, first)
	outcome := reconcile.Decide(resp, regType, backup, newState)
	switch outcome {
	case reconcile.OutcomePending:
		v.TransactionState = models.StateProgress
		v.RemoteTransactionID = resp.RegistrationID
	default:
		end := s.now()
		v.TransactionEndDate = &end
		v.TransactionState = newState
		if outcome == reconcile.OutcomeCloseWithError {
			if extracted, ok := reconcile.ExtractError(resp); ok {
				v.ErrorCode = extracted.Code
				v.ErrorMessage = extracted.Message
				v.RemoteTransactionID = extracted.CorrelationID
			}
		}
	}

	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpdateRecord(ctx, v, actor, true)
	})
	return outcome, err
}

// IsFirstTransaction reports whether no history entry for registrationID
// has ever recorded the Registered state.
func (s *Service) IsFirstTransaction(ctx context.Context, vin, registrationID string) (bool, error) {
	var history []models.HistoryEntry
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		history, err = s.store.GetHistory(ctx, vin)
		return err
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vehicle history")
	}

	registered := models.StateRegistered.String()
	for _, h := range history {
		if h.RegistrationID == registrationID && h.StateLabel == registered {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) withStoreTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, KindOf(err).String())
	return err
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	s.logger.InfoContext(ctx, event.Action,
		"subject", event.Subject,
		"transaction_id", event.TransactionID,
		"decision", event.Decision,
		"request_id", event.RequestID,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func indexByVIN(records []*models.Vehicle) map[string]*models.Vehicle {
	byVIN := make(map[string]*models.Vehicle, len(records))
	for _, v := range records {
		byVIN[v.VIN] = v
	}
	return byVIN
}

// History returns the snapshots recorded for vin, oldest first.
func (s *Service) History(ctx context.Context, vin string) ([]models.HistoryEntry, error) {
	vin = models.NormalizeVIN(vin)
	if vin == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "vin is required")
	}
	var history []models.HistoryEntry
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		history, err = s.store.GetHistory(ctx, vin)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vehicle history")
	}
	return history, nil
}
