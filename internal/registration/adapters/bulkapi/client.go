// Package bulkapi adapts the remote bulk registration service.
package bulkapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carreg/internal/registration/models"
	"carreg/pkg/platform/sentinel"
)

// Client is the remote registration API as seen by the coordinator.
type Client interface {
	ExecuteRegistration(ctx context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error)
	ExecuteSubsequentRegistration(ctx context.Context, reqs []models.SubsequentRegistrationRequest) (*models.SubsequentRegistrationResponse, error)
}

// MockClient answers deterministically with a configurable latency. VINs
// starting with FailPrefix make the whole call fail; VINs starting with
// RejectPrefix are reported as errors in an otherwise valid response.
type MockClient struct {
	Latency      time.Duration
	FailPrefix   string
	RejectPrefix string
}

func (c MockClient) ExecuteRegistration(ctx context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var rejected []string
	for _, registration := range req.Registrations {
		for _, delivery := range registration.Deliveries {
			for _, car := range delivery.Cars {
				if c.fails(car.VIN) {
					return nil, fmt.Errorf("bulk registration for %s: %w", car.VIN, sentinel.ErrUnavailable)
				}
				if c.rejects(car.VIN) {
					rejected = append(rejected, car.VIN+": vehicle rejected")
				}
			}
		}
	}
	if len(rejected) > 0 {
		return &models.RemoteResponse{Status: "ERROR", Errors: rejected}, nil
	}
	return &models.RemoteResponse{
		RegistrationID: "R-" + req.TransactionID,
		Status:         models.StatusSuccess,
	}, nil
}

func (c MockClient) ExecuteSubsequentRegistration(ctx context.Context, reqs []models.SubsequentRegistrationRequest) (*models.SubsequentRegistrationResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp := &models.SubsequentRegistrationResponse{Status: models.StatusSuccess}
	for i, r := range reqs {
		if c.fails(r.VIN) {
			return nil, fmt.Errorf("subsequent registration for %s: %w", r.VIN, sentinel.ErrUnavailable)
		}
		message := models.StatusSuccess
		if c.rejects(r.VIN) {
			message = "REJECTED"
		}
		resp.ActionResults = append(resp.ActionResults, models.ActionResult{
			TransactionID: fmt.Sprintf("S-%s-%d", r.RegistrationNumber, i+1),
			Message:       message,
		})
	}
	return resp, nil
}

func (c MockClient) wait(ctx context.Context) error {
	if c.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c MockClient) fails(vin string) bool {
	return c.FailPrefix != "" && strings.HasPrefix(vin, c.FailPrefix)
}

func (c MockClient) rejects(vin string) bool {
	return c.RejectPrefix != "" && strings.HasPrefix(vin, c.RejectPrefix)
}
