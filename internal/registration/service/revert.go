package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carreg/internal/registration/models"
	audit "carreg/pkg/platform/audit"
	dErrors "carreg/pkg/domain-errors"
	"carreg/pkg/platform/sentinel"
)

// HandleRevert restores each vehicle in ids to its earliest qualifying
// history snapshot. With onlyForced set, snapshots written by forced
// registration are ignored. Failures are logged, never returned.
func (s *Service) HandleRevert(ctx context.Context, ids []int64, actor string, onlyForced bool) {
	ctx, span := s.tracer.Start(ctx, "registration.HandleRevert",
		trace.WithAttributes(
			attribute.Int("vehicles", len(ids)),
			attribute.Bool("only_forced", onlyForced),
		))
	defer span.End()

	for _, id := range ids {
		var current *models.Vehicle
		var history []models.HistoryEntry
		err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
			var err error
			if current, err = s.store.GetRecordByID(ctx, id); err != nil {
				return err
			}
			history, err = s.store.GetHistory(ctx, current.VIN)
			return err
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to load vehicle for revert",
				"vehicle_id", id,
				"error", err,
			)
			continue
		}

		target, ok := revertTarget(history, onlyForced)
		if !ok {
			s.logger.WarnContext(ctx, "no history entry qualifies for revert",
				"vehicle_id", id,
				"vin", current.VIN,
			)
			continue
		}
		s.RevertCarData(ctx, id, target.CreatedAt, actor)
	}
}

// revertTarget returns the oldest entry that was not a Progress snapshot
// and, when onlyForced, not written by forced registration.
func revertTarget(history []models.HistoryEntry, onlyForced bool) (models.HistoryEntry, bool) {
	ordered := make([]models.HistoryEntry, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	for _, h := range ordered {
		if onlyForced && h.Actor == models.ForceActor {
			continue
		}
		if h.TypeLabel == models.StateProgress.String() {
			continue
		}
		return h, true
	}
	return models.HistoryEntry{}, false
}

// RevertCarData copies the customer-facing fields of the snapshot taken at
// ts back onto vehicle id. It reports whether the record was rewritten.
func (s *Service) RevertCarData(ctx context.Context, id int64, ts time.Time, actor string) bool {
	ok := s.revertCarData(ctx, id, ts, actor)
	if s.metrics != nil {
		s.metrics.IncrementRevert(ok)
	}
	return ok
}

func (s *Service) revertCarData(ctx context.Context, id int64, ts time.Time, actor string) bool {
	if ts.IsZero() {
		return false
	}

	var current *models.Vehicle
	var entry *models.HistoryEntry
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		if current, err = s.store.GetRecordByID(ctx, id); err != nil {
			return err
		}
		entry, err = s.store.GetHistoryEntry(ctx, current.VIN, ts)
		return err
	})
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load revert snapshot",
				"vehicle_id", id,
				"created_at", ts,
				"error", err,
			)
		}
		return false
	}
	if current == nil || entry == nil {
		return false
	}

	values := current.Clone()
	values.ErpRegistrationNumber = entry.ErpRegistrationNumber
	values.CompanyID = entry.CompanyID
	values.CustomerID = entry.CustomerID
	values.EmailAddresses = entry.EmailAddresses
	values.CustomerRegistrationReference = entry.CustomerRegistrationReference
	values.CarPool = entry.CarPool
	if entry.CarPoolNumber != "" {
		values.CarPoolNumber = entry.CarPoolNumber
	}
	values.ErrorNotificationSent = false

	if err := s.AssignCarValuesForUpdate(ctx, current, values, actor, "", true); err != nil {
		s.logger.ErrorContext(ctx, "failed to revert vehicle",
			"vehicle_id", id,
			"vin", current.VIN,
			"error", err,
		)
		return false
	}

	s.logAudit(ctx, audit.Event{
		Action:        string(audit.EventVehicleReverted),
		Subject:       current.VIN,
		TransactionID: current.TransactionID,
		CompanyID:     current.CompanyID,
		Decision:      "reverted",
		Reason:        ts.UTC().Format(time.RFC3339Nano),
		ActorID:       actor,
	})
	return true
}

// AssignCarValuesForUpdate copies the mutable fields of values onto current
// and persists it. source wins over values.Source when set.
func (s *Service) AssignCarValuesForUpdate(
	ctx context.Context,
	current, values *models.Vehicle,
	actor, source string,
	withHistory bool,
) error {
	if current == nil || values == nil {
		return dErrors.New(dErrors.CodeBadRequest, "vehicle values are required")
	}

	current.CompanyID = values.CompanyID
	current.CustomerID = values.CustomerID
	current.CarPool = values.CarPool
	current.CarPoolNumber = values.CarPoolNumber
	current.ErpRegistrationNumber = values.ErpRegistrationNumber
	current.ErpDeliveryNumber = values.ErpDeliveryNumber
	if values.DeliveryDate != nil {
		current.DeliveryDate = values.DeliveryDate
	}
	if values.RegistrationDate != nil {
		current.RegistrationDate = values.RegistrationDate
	}
	current.EmailAddresses = values.EmailAddresses
	current.CustomerRegistrationReference = values.CustomerRegistrationReference
	current.ErrorNotificationSent = values.ErrorNotificationSent
	current.Source = values.Source
	if source != "" {
		current.Source = source
	}

	return s.withStoreTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpdateRecord(ctx, current, actor, withHistory)
	})
}
