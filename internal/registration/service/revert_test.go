package service_test

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"carreg/internal/registration/models"
	"carreg/internal/registration/service"
	"carreg/internal/registration/service/mocks"
	"carreg/pkg/platform/sentinel"
)

func (s *ServiceSuite) forcedRequest(cars ...*models.Vehicle) models.RegisterCarsRequest {
	req := s.registerRequest(cars...)
	req.Forced = true
	return req
}

func (s *ServiceSuite) TestForcedRegistrationRevertsOnRemoteError() {
	s.seed(completeCar("VIN1"))
	var sent []models.SubsequentRegistrationRequest
	s.remote.EXPECT().ExecuteSubsequentRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, reqs []models.SubsequentRegistrationRequest) (*models.SubsequentRegistrationResponse, error) {
			sent = reqs
			return nil, errors.New("gateway timeout")
		})

	result, err := s.svc.RegisterCars(s.ctx, s.forcedRequest(
		&models.Vehicle{VIN: "VIN1", IsExisting: true, EmailAddresses: "new@example.com"},
	))
	s.Require().NoError(err)
	s.Equal(models.MessageForceError, result.Message)

	s.Require().Len(sent, 1)
	s.Equal("new@example.com", sent[0].EmailAddresses)
	s.Equal("NUM1", sent[0].RegistrationNumber)

	v := s.record("VIN1")
	s.Equal("fleet@example.com", v.EmailAddresses)
	s.False(v.ErrorNotificationSent)

	var forcedEntries int
	for _, h := range s.history("VIN1") {
		if h.Actor == models.ForceActor {
			forcedEntries++
		}
	}
	s.Equal(1, forcedEntries)
}

func (s *ServiceSuite) TestForcedRegistrationRevertsOnRejectedItem() {
	s.seed(completeCar("VIN1"))
	s.remote.EXPECT().ExecuteSubsequentRegistration(gomock.Any(), gomock.Any()).
		Return(&models.SubsequentRegistrationResponse{
			Status:        models.StatusSuccess,
			ActionResults: []models.ActionResult{{TransactionID: "T1", Message: "REJECTED"}},
		}, nil)

	result, err := s.svc.ForceRegistration(s.ctx, s.forcedRequest(
		&models.Vehicle{VIN: "VIN1", IsExisting: true, EmailAddresses: "new@example.com"},
	))
	s.Require().Error(err)
	s.Equal(service.KindForcedRegistration, service.KindOf(err))
	s.Equal(models.MessageForceError, result.Message)
	s.Equal("fleet@example.com", s.record("VIN1").EmailAddresses)
}

func (s *ServiceSuite) TestForcedRegistrationSuccess() {
	s.seed(completeCar("VIN1"))
	id := s.record("VIN1").ID
	s.remote.EXPECT().ExecuteSubsequentRegistration(gomock.Any(), gomock.Any()).
		Return(&models.SubsequentRegistrationResponse{
			Status: models.StatusSuccess,
			ActionResults: []models.ActionResult{
				{TransactionID: "T9", Message: models.StatusSuccess, RegisteredCarIDs: []int64{id}},
			},
		}, nil)

	result, err := s.svc.RegisterCars(s.ctx, s.forcedRequest(
		&models.Vehicle{VIN: "VIN1", IsExisting: true, EmailAddresses: "new@example.com"},
	))
	s.Require().NoError(err)
	s.Equal(models.MessageSuccess, result.Message)
	s.Equal("T9", result.TransactionID)
	s.Equal([]int64{id}, result.RegisteredCarIDs)

	v := s.record("VIN1")
	s.Equal("new@example.com", v.EmailAddresses)
	s.Equal(models.ForceSource, v.Source)
}

func (s *ServiceSuite) TestForcedRegistrationContinuesWithNewCars() {
	s.seed(completeCar("VIN1"))
	s.remote.EXPECT().ExecuteSubsequentRegistration(gomock.Any(), gomock.Any()).
		Return(&models.SubsequentRegistrationResponse{Status: models.StatusSuccess}, nil)
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
			s.Require().Len(req.Registrations, 1)
			s.Equal("VIN7", req.Registrations[0].Deliveries[0].Cars[0].VIN)
			return &models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil
		})

	result, err := s.svc.RegisterCars(s.ctx, s.forcedRequest(
		&models.Vehicle{VIN: "VIN1", IsExisting: true},
		&models.Vehicle{VIN: "VIN7"},
	))
	s.Require().NoError(err)
	s.Equal(models.MessageSuccess, result.Message)
	s.Equal(models.StateRegistered, s.record("VIN7").TransactionState)
}

func (s *ServiceSuite) TestHandleRevertSkipsForcedSnapshots() {
	s.seed(completeCar("VIN1"))
	v := s.record("VIN1")
	v.EmailAddresses = "forced@example.com"
	s.Require().NoError(s.store.UpdateRecord(context.Background(), v, models.ForceActor, true))

	s.svc.HandleRevert(s.ctx, []int64{v.ID}, "ops", true)

	reverted := s.record("VIN1")
	s.Equal("fleet@example.com", reverted.EmailAddresses)
	history := s.history("VIN1")
	s.Equal("ops", history[len(history)-1].Actor)
}

func (s *ServiceSuite) TestHandleRevertSkipsProgressEntries() {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2, t3 := t1.Add(time.Minute), t1.Add(2*time.Minute)
	current := &models.Vehicle{ID: 5, VIN: "VIN5", EmailAddresses: "now@example.com", CarPoolNumber: "KEEP"}
	target := models.HistoryEntry{VIN: "VIN5", Actor: "bob", EmailAddresses: "target@example.com", CreatedAt: t3}

	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecordByID(gomock.Any(), int64(5)).
		DoAndReturn(func(context.Context, int64) (*models.Vehicle, error) { return current.Clone(), nil }).Times(2)
	st.EXPECT().GetHistory(gomock.Any(), "VIN5").Return([]models.HistoryEntry{
		{VIN: "VIN5", Actor: "x", TypeLabel: "Progress", CreatedAt: t1},
		{VIN: "VIN5", Actor: models.ForceActor, CreatedAt: t2},
		target,
	}, nil)
	st.EXPECT().GetHistoryEntry(gomock.Any(), "VIN5", t3).Return(&target, nil)
	st.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), "ops", true).
		DoAndReturn(func(_ context.Context, v *models.Vehicle, _ string, _ bool) error {
			s.Equal("target@example.com", v.EmailAddresses)
			s.Equal("KEEP", v.CarPoolNumber, "empty snapshot carpool number keeps the current one")
			return nil
		})

	svc := service.New(st, s.remote)
	svc.HandleRevert(s.ctx, []int64{5}, "ops", true)
}

func (s *ServiceSuite) TestHandleRevertPicksOldestEntryRegardlessOfOrder() {
	oldest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := oldest.Add(time.Minute)
	current := &models.Vehicle{ID: 6, VIN: "VIN6", EmailAddresses: "now@example.com"}
	target := models.HistoryEntry{VIN: "VIN6", Actor: "bob", EmailAddresses: "oldest@example.com", CreatedAt: oldest}

	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecordByID(gomock.Any(), int64(6)).
		DoAndReturn(func(context.Context, int64) (*models.Vehicle, error) { return current.Clone(), nil }).Times(2)
	st.EXPECT().GetHistory(gomock.Any(), "VIN6").Return([]models.HistoryEntry{
		{VIN: "VIN6", Actor: "carol", EmailAddresses: "newer@example.com", CreatedAt: newer},
		target,
	}, nil)
	st.EXPECT().GetHistoryEntry(gomock.Any(), "VIN6", oldest).Return(&target, nil)
	st.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), "ops", true).
		DoAndReturn(func(_ context.Context, v *models.Vehicle, _ string, _ bool) error {
			s.Equal("oldest@example.com", v.EmailAddresses)
			return nil
		})

	svc := service.New(st, s.remote)
	svc.HandleRevert(s.ctx, []int64{6}, "ops", false)
}

func (s *ServiceSuite) TestHandleRevertWithoutQualifyingEntry() {
	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecordByID(gomock.Any(), int64(5)).Return(&models.Vehicle{ID: 5, VIN: "VIN5"}, nil)
	st.EXPECT().GetHistory(gomock.Any(), "VIN5").Return([]models.HistoryEntry{
		{Actor: models.ForceActor, CreatedAt: time.Now()},
	}, nil)

	svc := service.New(st, s.remote)
	svc.HandleRevert(s.ctx, []int64{5}, "ops", true)
}

func (s *ServiceSuite) TestRevertCarDataRejectsZeroTimestamp() {
	st := mocks.NewMockStore(s.ctrl)
	svc := service.New(st, s.remote)
	s.False(svc.RevertCarData(s.ctx, 1, time.Time{}, "ops"))
}

func (s *ServiceSuite) TestRevertCarDataMissingSnapshot() {
	s.seed(completeCar("VIN1"))
	id := s.record("VIN1").ID
	s.False(s.svc.RevertCarData(s.ctx, id, s.now.Add(time.Hour), "ops"))

	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().GetRecordByID(gomock.Any(), int64(9)).Return(nil, sentinel.ErrNotFound)
	svc := service.New(st, s.remote)
	s.False(svc.RevertCarData(s.ctx, 9, s.now, "ops"))
}

func (s *ServiceSuite) TestAssignCarValuesForUpdate() {
	s.seed(completeCar("VIN1"))
	current := s.record("VIN1")
	values := current.Clone()
	values.CustomerID = "CU9"
	values.Source = "import"

	s.Require().NoError(s.svc.AssignCarValuesForUpdate(s.ctx, current, values, "alice", "", false))
	v := s.record("VIN1")
	s.Equal("CU9", v.CustomerID)
	s.Equal("import", v.Source)

	s.Require().NoError(s.svc.AssignCarValuesForUpdate(s.ctx, current, values, "alice", "manual", false))
	s.Equal("manual", s.record("VIN1").Source)

	s.Error(s.svc.AssignCarValuesForUpdate(s.ctx, nil, values, "alice", "", false))
}
