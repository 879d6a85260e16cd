package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/mock/gomock"

	"carreg/internal/registration/models"
	dErrors "carreg/pkg/domain-errors"
)

func (s *ServiceSuite) registerRequest(cars ...*models.Vehicle) models.RegisterCarsRequest {
	return models.RegisterCarsRequest{
		CompanyID:  "C1",
		CustomerID: "CU1",
		Cars:       cars,
		Actor:      "alice",
	}
}

func (s *ServiceSuite) TestRegisterCarsSuccess() {
	var captured models.BulkRegistrationRequest
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
			captured = req
			return &models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil
		})

	result, err := s.svc.RegisterCars(s.ctx, s.registerRequest(
		&models.Vehicle{VIN: " vin1 ", CarPool: "POOL"},
		&models.Vehicle{VIN: "VIN1"},
		&models.Vehicle{VIN: "vin2", CarPool: "POOL"},
	))
	s.Require().NoError(err)
	s.Equal(models.MessageSuccess, result.Message)
	s.Equal(fixedRegistrationID, result.RegistrationID)
	s.Equal("n/a", result.TransactionState)
	s.NotEmpty(result.TransactionID)
	s.Len(result.RegisteredCarIDs, 2)

	s.Equal(result.TransactionID, captured.TransactionID)
	s.Equal("C1", captured.CompanyID)
	s.Require().Len(captured.Registrations, 1)
	registration := captured.Registrations[0]
	s.Equal("POOL-ABEiM0RV", registration.RegistrationNumber)
	s.Equal("Register", registration.RegistrationType)
	s.Equal("CU1", registration.CustomerID)
	s.Require().Len(registration.Deliveries, 1)
	s.Equal(fixedRegistrationID, registration.Deliveries[0].DeliveryNumber)
	s.Equal([]models.CarRequest{{VIN: "VIN1"}, {VIN: "VIN2"}},
		registration.Deliveries[0].Cars)

	v := s.record("VIN1")
	s.Equal(models.StateRegistered, v.TransactionState)
	s.Equal("POOL-ABEiM0RV", v.CarPoolNumber)
	s.Equal(fixedRegistrationID, v.RegistrationID)
	s.Require().NotNil(v.DeliveryDate)
	s.True(time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC).Equal(*v.DeliveryDate))
	s.Equal(fixedRegistrationID, v.ErpDeliveryNumber)
	s.NotNil(v.TransactionEndDate)
}

func (s *ServiceSuite) TestRegisterCarsKeepsCallerDeliveryData() {
	var captured models.BulkRegistrationRequest
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
			captured = req
			return &models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil
		})

	delivery := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err := s.svc.RegisterCars(s.ctx, s.registerRequest(
		&models.Vehicle{VIN: "VIN1", CarPool: "POOL", DeliveryDate: &delivery, ErpDeliveryNumber: "DLV-42"},
		&models.Vehicle{VIN: "VIN2", CarPool: "POOL", DeliveryDate: &delivery},
	))
	s.Require().NoError(err)

	v := s.record("VIN1")
	s.Require().NotNil(v.DeliveryDate)
	s.True(delivery.Equal(*v.DeliveryDate))
	s.Equal("DLV-42", v.ErpDeliveryNumber)

	partial := s.record("VIN2")
	s.Require().NotNil(partial.DeliveryDate)
	s.True(delivery.Equal(*partial.DeliveryDate))
	s.Equal(fixedRegistrationID, partial.ErpDeliveryNumber)

	s.Require().Len(captured.Registrations, 1)
	deliveries := captured.Registrations[0].Deliveries
	s.Require().Len(deliveries, 2)
	s.Equal("DLV-42", deliveries[0].DeliveryNumber)
	s.Equal("2024-3-3T00:00:00Z", deliveries[0].DeliveryDate)
	s.Equal([]models.CarRequest{{VIN: "VIN1"}}, deliveries[0].Cars)
	s.Equal(fixedRegistrationID, deliveries[1].DeliveryNumber)
	s.Equal("2024-3-3T00:00:00Z", deliveries[1].DeliveryDate)
}

func (s *ServiceSuite) TestRegisterCarsSkipsDeliveryDefaultsWithErpRegistration() {
	result, err := s.svc.RegisterCars(s.ctx, s.registerRequest(
		&models.Vehicle{VIN: "VIN1", CarPool: "POOL", ErpRegistrationNumber: "ERP-9"},
	))
	s.Require().NoError(err)
	s.Equal(models.MessageMissingData, result.Message)

	v := s.record("VIN1")
	s.Nil(v.DeliveryDate)
	s.Empty(v.ErpDeliveryNumber)
	s.Equal(models.StateMissingData, v.TransactionState)
}

func (s *ServiceSuite) TestRegisterCarsFordUsesCustomerReference() {
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		Return(&models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil)

	req := s.registerRequest(&models.Vehicle{VIN: "VIN1", CarPool: "FLEET-7"})
	req.Brand = "ford"
	_, err := s.svc.RegisterCars(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("FLEET-7", s.record("VIN1").CarPoolNumber)
}

func (s *ServiceSuite) TestRegisterCarsRemoteFailureClosesRecords() {
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	result, err := s.svc.RegisterCars(s.ctx, s.registerRequest(&models.Vehicle{VIN: "VIN1"}))
	s.Require().NoError(err)
	s.Equal(models.MessageError, result.Message)

	v := s.record("VIN1")
	s.Equal(models.StateNotRegistered, v.TransactionState)
	s.NotNil(v.TransactionEndDate)
}

// Cancelling the caller mid-call must not strand records in Progress.
func (s *ServiceSuite) TestRegisterCarsCancelledDuringRemoteCall() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
			cancel()
			return &models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil
		})

	result, err := s.svc.RegisterCars(ctx, s.registerRequest(&models.Vehicle{VIN: "VIN1"}, &models.Vehicle{VIN: "VIN2"}))
	s.Require().NoError(err)
	s.Equal(models.MessageError, result.Message)
	s.Len(result.RegisteredCarIDs, 2)

	for _, vin := range []string{"VIN1", "VIN2"} {
		v := s.record(vin)
		s.NotEqual(models.StateProgress, v.TransactionState)
		s.Equal(models.StateNotRegistered, v.TransactionState)
		s.NotNil(v.TransactionEndDate)
	}
}

// Moving a registered car to another company issues a new registration id,
// so an error on it counts as that registration's first transaction.
func (s *ServiceSuite) TestRegisterCarsErrorOnNewRegistrationIsNotRegistered() {
	s.seed(completeCar("VIN1"))
	s.setState("VIN1", models.StateRegistered)
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		Return(&models.RemoteResponse{Errors: []string{"timeout"}}, nil)

	result, err := s.svc.RegisterCars(s.ctx, models.RegisterCarsRequest{
		CompanyID:  "C2",
		CustomerID: "CU1",
		Cars:       []*models.Vehicle{{VIN: "VIN1"}, {VIN: "VIN5"}},
		Actor:      "alice",
	})
	s.Require().NoError(err)
	s.Equal(models.MessageError, result.Message)
	s.Len(result.RegisteredCarIDs, 2)

	for _, vin := range []string{"VIN1", "VIN5"} {
		v := s.record(vin)
		s.Equal(models.StateNotRegistered, v.TransactionState)
		s.Equal("timeout", v.ErrorCode)
		s.Equal("C2", v.CompanyID)
		s.NotNil(v.TransactionEndDate)
	}
}

func (s *ServiceSuite) TestRegisterCarsAlreadyEnrolled() {
	s.seed(completeCar("VIN1"))
	s.setState("VIN1", models.StateRegistered)

	result, err := s.svc.RegisterCars(s.ctx, s.registerRequest(&models.Vehicle{VIN: "VIN1"}))
	s.Require().NoError(err)
	s.Equal(models.MessageAlreadyEnrolled, result.Message)
}

func (s *ServiceSuite) TestRegisterCarsDropsCarsWithMissingData() {
	var captured models.BulkRegistrationRequest
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
			captured = req
			return &models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil
		})

	req := s.registerRequest(
		&models.Vehicle{VIN: "VIN1", CustomerID: "CU7"},
		&models.Vehicle{VIN: "VIN2"},
	)
	req.CustomerID = ""
	result, err := s.svc.RegisterCars(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.MessageSuccess, result.Message)
	s.Len(result.RegisteredCarIDs, 1)

	s.Require().Len(captured.Registrations, 1)
	s.Equal("VIN1", captured.Registrations[0].Deliveries[0].Cars[0].VIN)
	s.Len(captured.Registrations[0].Deliveries[0].Cars, 1)
	s.Equal(models.StateMissingData, s.record("VIN2").TransactionState)
}

func (s *ServiceSuite) TestRegisterCarsAllMissingData() {
	req := s.registerRequest(&models.Vehicle{VIN: "VIN1"}, &models.Vehicle{VIN: "VIN2"})
	req.CustomerID = ""

	result, err := s.svc.RegisterCars(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.MessageMissingData, result.Message)
	s.Equal(models.StateMissingData, s.record("VIN1").TransactionState)
	s.Equal(models.StateMissingData, s.record("VIN2").TransactionState)
}

func (s *ServiceSuite) TestRegisterCarsDeactivatedRequiresAction() {
	req := s.registerRequest(&models.Vehicle{VIN: "VIN1"})
	req.DeactivateAutoRegistration = true

	result, err := s.svc.RegisterCars(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.MessageActionRequired, result.Message)
	s.Equal(models.StateActionRequired, s.record("VIN1").TransactionState)
}

func (s *ServiceSuite) TestRegisterCarsRejectsBadInput() {
	tests := []struct {
		name string
		req  models.RegisterCarsRequest
	}{
		{"missing company", models.RegisterCarsRequest{Cars: []*models.Vehicle{{VIN: "VIN1"}}}},
		{"no cars", models.RegisterCarsRequest{CompanyID: "C1"}},
		{"blank vins", models.RegisterCarsRequest{CompanyID: "C1", Cars: []*models.Vehicle{{VIN: " "}}}},
		{"unknown brand", models.RegisterCarsRequest{CompanyID: "C1", Brand: "Trabant", Cars: []*models.Vehicle{{VIN: "VIN1"}}}},
		{"unknown type", models.RegisterCarsRequest{CompanyID: "C1", Type: models.TransactionType(42), Cars: []*models.Vehicle{{VIN: "VIN1"}}}},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := s.svc.RegisterCars(s.ctx, tc.req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

// Overlapping batches must not interleave their Begin..Finish windows.
func (s *ServiceSuite) TestConcurrentRegistrationsAreSerialised() {
	var inFlight, maxInFlight atomic.Int32
	s.remote.EXPECT().ExecuteRegistration(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return &models.RemoteResponse{RegistrationID: "R1", Status: models.StatusSuccess}, nil
		}).AnyTimes()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, vins := range [][]string{{"VIN1", "VIN2"}, {"VIN2", "VIN3"}} {
		wg.Add(1)
		go func(vins []string) {
			defer wg.Done()
			cars := make([]*models.Vehicle, 0, len(vins))
			for _, vin := range vins {
				cars = append(cars, &models.Vehicle{VIN: vin})
			}
			_, err := s.svc.RegisterCars(s.ctx, s.registerRequest(cars...))
			errs <- err
		}(vins)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}
	s.LessOrEqual(maxInFlight.Load(), int32(1))
	s.Equal(models.StateRegistered, s.record("VIN2").TransactionState)
}
