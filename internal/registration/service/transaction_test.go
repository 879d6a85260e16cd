package service_test

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"carreg/internal/registration/models"
	"carreg/internal/registration/service"
	"carreg/internal/registration/service/mocks"
	audit "carreg/pkg/platform/audit"
	dErrors "carreg/pkg/domain-errors"
)

func (s *ServiceSuite) TestBeginStampsEveryVehicle() {
	s.seed(completeCar("VIN1"), completeCar("VIN2"))
	before := len(s.history("VIN1"))

	txID, err := s.svc.BeginTransaction(s.ctx, models.TransactionBatch{
		CompanyID:     "C1",
		VINs:          []string{"VIN1", "VIN2"},
		Type:          models.TypeRegister,
		CarPoolNumber: "NUM9",
		Actor:         "alice",
	})
	s.Require().NoError(err)
	s.NotEmpty(txID)
	s.LessOrEqual(len(txID), 32)

	for _, vin := range []string{"VIN1", "VIN2"} {
		v := s.record(vin)
		s.Equal(txID, v.TransactionID)
		s.Equal("NUM9", v.CarPoolNumber)
		s.Equal(models.StateNotRegistered, v.TransactionState)
		s.Equal(models.TypeRegister, v.TransactionType)
		s.Require().NotNil(v.TransactionStartDate)
		s.True(s.now.Equal(*v.TransactionStartDate))
		s.Nil(v.TransactionEndDate)
	}
	history := s.history("VIN1")
	s.Len(history, before+1)
	s.Equal("alice", history[len(history)-1].Actor)
}

func (s *ServiceSuite) TestBeginClearsPreviousError() {
	car := completeCar("VIN1")
	s.seed(car)
	v := s.record("VIN1")
	v.ErrorCode = "E1"
	v.ErrorMessage = "old failure"
	end := s.now
	v.TransactionEndDate = &end
	s.Require().NoError(s.store.UpdateRecord(context.Background(), v, "seed", false))

	s.begin("VIN1")

	v = s.record("VIN1")
	s.Empty(v.ErrorCode)
	s.Empty(v.ErrorMessage)
	s.Nil(v.TransactionEndDate)
}

// A repeated Begin must never erase the state a previous transaction left.
func (s *ServiceSuite) TestDoubleBeginKeepsState() {
	s.seed(completeCar("VIN1"))
	s.begin("VIN1")
	s.setState("VIN1", models.StateRegistered)

	s.begin("VIN1")
	s.Equal(models.StateRegistered, s.record("VIN1").TransactionState)
}

func (s *ServiceSuite) TestBeginUsesSuppliedTransactionID() {
	s.seed(completeCar("VIN1"))
	txID, err := s.svc.BeginTransaction(s.ctx, models.TransactionBatch{
		TransactionID: "TX-EXTERNAL",
		VINs:          []string{"VIN1"},
		Type:          models.TypeRegister,
	})
	s.Require().NoError(err)
	s.Equal("TX-EXTERNAL", txID)
}

func (s *ServiceSuite) TestBeginUnknownVehicle() {
	_, err := s.svc.BeginTransaction(s.ctx, models.TransactionBatch{
		VINs: []string{"NOPE"},
		Type: models.TypeRegister,
	})
	s.Require().Error(err)
	s.Equal(service.KindBegin, service.KindOf(err))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestBeginIDGenerationFailure() {
	ids := mocks.NewMockTransactionIDSource(s.ctrl)
	ids.EXPECT().Next().Return("", dErrors.New(dErrors.CodeInternal, "transaction id clock unavailable"))
	svc := s.newService(service.WithTransactionIDs(ids))

	_, err := svc.BeginTransaction(s.ctx, models.TransactionBatch{VINs: []string{"VIN1"}, Type: models.TypeRegister})
	s.Require().Error(err)
	s.Equal(service.KindIDGeneration, service.KindOf(err))
}

func (s *ServiceSuite) TestBeginStopsAtFirstStoreError() {
	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecords(gomock.Any(), []string{"A", "B", "C"}).Return([]*models.Vehicle{
		{ID: 1, VIN: "A"}, {ID: 2, VIN: "B"}, {ID: 3, VIN: "C"},
	}, nil)
	gomock.InOrder(
		st.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), "alice", true).Return(nil),
		st.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), "alice", true).Return(errors.New("disk full")),
	)
	svc := service.New(st, s.remote, service.WithTransactionIDs(mocksIDs(s, "TX1")))

	_, err := svc.BeginTransaction(s.ctx, models.TransactionBatch{
		VINs:  []string{"A", "B", "C"},
		Type:  models.TypeRegister,
		Actor: "alice",
	})
	s.Require().Error(err)
	s.Equal(service.KindBegin, service.KindOf(err))
}

func (s *ServiceSuite) TestBeginHonoursCancellation() {
	s.seed(completeCar("VIN1"))
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.svc.BeginTransaction(ctx, models.TransactionBatch{VINs: []string{"VIN1"}, Type: models.TypeRegister})
	s.Require().Error(err)
	s.Equal(models.StateNone, s.record("VIN1").TransactionState)
}

func (s *ServiceSuite) TestBeginEmitsAuditEvent() {
	s.seed(completeCar("VIN1"))
	publisher := mocks.NewMockAuditPublisher(s.ctrl)
	var got audit.Event
	publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		got = e
		return errors.New("audit sink down")
	})
	svc := s.newService(service.WithAuditPublisher(publisher))

	txID, err := svc.BeginTransaction(s.ctx, models.TransactionBatch{
		CompanyID: "C1",
		VINs:      []string{"VIN1"},
		Type:      models.TypeRegister,
		Actor:     "alice",
	})
	s.Require().NoError(err, "audit failures are not fatal")
	s.Equal(string(audit.EventTransactionBegun), got.Action)
	s.Equal(txID, got.TransactionID)
	s.Equal("alice", got.ActorID)
}

// R1/SUCCESS closes the transaction as Registered.
func (s *ServiceSuite) TestFinishSuccessfulRegister() {
	s.seed(completeCar("VIN1"))
	s.begin("VIN1")
	id := s.record("VIN1").ID

	ids, err := s.svc.FinishTransaction(s.ctx, models.TypeRegister,
		&models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess},
		[]string{"VIN1"}, "C1", "alice", nil)
	s.Require().NoError(err)
	s.Equal([]int64{id}, ids)

	v := s.record("VIN1")
	s.Equal(models.StateRegistered, v.TransactionState)
	s.NotNil(v.TransactionEndDate)
	s.Empty(v.ErrorCode)
	s.Empty(v.ErrorMessage)
}

// A previously registered vehicle that hits an error keeps Registered and
// records the error.
func (s *ServiceSuite) TestFinishErrorOnRegisteredVehicleKeepsState() {
	s.seed(completeCar("VIN1"))
	s.setState("VIN1", models.StateRegistered)
	s.begin("VIN1")

	ids, err := s.svc.FinishTransaction(s.ctx, models.TypeRegister,
		&models.RemoteResponse{Errors: []string{"timeout"}},
		[]string{"VIN1"}, "C1", "alice", models.StateRegistered.Ptr())
	s.Require().NoError(err)
	s.Len(ids, 1)

	v := s.record("VIN1")
	s.Equal(models.StateRegistered, v.TransactionState)
	s.Equal("timeout", v.ErrorCode)
	s.Equal("timeout", v.ErrorMessage)
	s.NotNil(v.TransactionEndDate)
}

func (s *ServiceSuite) TestFinishFirstTransactionErrorIsNotRegistered() {
	s.seed(completeCar("VIN1"))
	s.begin("VIN1")

	_, err := s.svc.FinishTransaction(s.ctx, models.TypeRegister,
		&models.RemoteResponse{TransactionID: "CORR", ErrorCode: "E42", ErrorMessage: "bad ship-to"},
		[]string{"VIN1"}, "C1", "alice", nil)
	s.Require().NoError(err)

	v := s.record("VIN1")
	s.Equal(models.StateNotRegistered, v.TransactionState)
	s.Equal("E42", v.ErrorCode)
	s.Equal("bad ship-to", v.ErrorMessage)
	s.Equal("CORR", v.RemoteTransactionID)
	s.NotNil(v.TransactionEndDate)
}

func (s *ServiceSuite) TestFinishOverrideLeavesTransactionPending() {
	s.seed(completeCar("VIN1"))
	s.begin("VIN1")

	_, err := s.svc.FinishTransaction(s.ctx, models.TypeOverride,
		&models.RemoteResponse{RegistrationID: "R9", Status: models.StatusSuccess},
		[]string{"VIN1"}, "C1", "alice", nil)
	s.Require().NoError(err)

	v := s.record("VIN1")
	s.Equal(models.StateProgress, v.TransactionState)
	s.Equal("R9", v.RemoteTransactionID)
	s.Nil(v.TransactionEndDate)
	s.Equal(models.TypeOverride, v.TransactionType)
}

func (s *ServiceSuite) TestFinishWithoutResponseNeverLeavesProgress() {
	tests := []struct {
		name    string
		regType models.TransactionType
		backup  *models.TransactionState
		want    models.TransactionState
	}{
		{"register without backup", models.TypeRegister, nil, models.StateNotRegistered},
		{"unregister without backup", models.TypeUnregister, nil, models.StateFailed},
		{"backup restored", models.TypeReset, models.StateRegistered.Ptr(), models.StateRegistered},
	}
	for i, tc := range tests {
		s.Run(tc.name, func() {
			vin := []string{"NR1", "NR2", "NR3"}[i]
			s.seed(completeCar(vin))
			s.begin(vin)

			_, err := s.svc.FinishTransaction(s.ctx, tc.regType, nil, []string{vin}, "C1", "alice", tc.backup)
			s.Require().NoError(err)

			v := s.record(vin)
			s.Equal(tc.want, v.TransactionState)
			s.NotNil(v.TransactionEndDate)
			s.Empty(v.ErrorCode)
		})
	}
}

func (s *ServiceSuite) TestFinishRunsAfterCallerCancelled() {
	s.seed(completeCar("VIN1"))
	s.begin("VIN1")
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	ids, err := s.svc.FinishTransaction(ctx, models.TypeRegister, nil, []string{"VIN1"}, "C1", "alice", nil)
	s.Require().NoError(err)
	s.Len(ids, 1)
	s.NotNil(s.record("VIN1").TransactionEndDate)
}

func (s *ServiceSuite) TestFinishIsolatesRecordFailures() {
	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecords(gomock.Any(), []string{"A", "B"}).Return([]*models.Vehicle{
		{ID: 1, VIN: "A"}, {ID: 2, VIN: "B"},
	}, nil)
	st.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), "alice", true).
		DoAndReturn(func(_ context.Context, v *models.Vehicle, _ string, _ bool) error {
			if v.VIN == "A" {
				return errors.New("row locked")
			}
			return nil
		}).Times(2)
	svc := service.New(st, s.remote, service.WithFinishTimeout(time.Second))

	ids, err := svc.FinishTransaction(s.ctx, models.TypeRegister,
		&models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess},
		[]string{"A", "B"}, "C1", "alice", nil)
	s.Require().NoError(err)
	s.Equal([]int64{2}, ids)
}

func (s *ServiceSuite) TestFinishLoadFailure() {
	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecords(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	svc := service.New(st, s.remote)

	_, err := svc.FinishTransaction(s.ctx, models.TypeRegister, nil, []string{"A"}, "C1", "alice", nil)
	s.Require().Error(err)
	s.Equal(service.KindFinish, service.KindOf(err))
}

func (s *ServiceSuite) TestIsFirstTransaction() {
	s.seed(completeCar("VIN1"))

	first, err := s.svc.IsFirstTransaction(s.ctx, "VIN1", "REG1")
	s.Require().NoError(err)
	s.True(first, "history without a Registered entry")

	s.setState("VIN1", models.StateRegistered)
	first, err = s.svc.IsFirstTransaction(s.ctx, "VIN1", "REG1")
	s.Require().NoError(err)
	s.False(first)

	first, err = s.svc.IsFirstTransaction(s.ctx, "VIN1", "OTHER")
	s.Require().NoError(err)
	s.True(first, "entries of other registrations are ignored")

	first, err = s.svc.IsFirstTransaction(s.ctx, "UNKNOWN", "REG1")
	s.Require().NoError(err)
	s.True(first, "empty history")
}

func (s *ServiceSuite) TestHistoryRequiresVIN() {
	_, err := s.svc.History(s.ctx, "  ")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func mocksIDs(s *ServiceSuite, id string) *mocks.MockTransactionIDSource {
	ids := mocks.NewMockTransactionIDSource(s.ctrl)
	ids.EXPECT().Next().Return(id, nil).AnyTimes()
	return ids
}
