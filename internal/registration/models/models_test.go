package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func completeVehicle() *Vehicle {
	delivered := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &Vehicle{
		VIN:               "WVWZZZ1JZ3W386752",
		CompanyID:         "C1",
		CustomerID:        "K1",
		DeliveryDate:      &delivered,
		ErpDeliveryNumber: "D-1",
	}
}

func TestHasMissingData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *Vehicle)
		want   bool
	}{
		{"complete", func(*Vehicle) {}, false},
		{"no company", func(v *Vehicle) { v.CompanyID = "" }, true},
		{"no vin", func(v *Vehicle) { v.VIN = "" }, true},
		{"no customer", func(v *Vehicle) { v.CustomerID = "" }, true},
		{"no delivery date", func(v *Vehicle) { v.DeliveryDate = nil }, true},
		{"no delivery number", func(v *Vehicle) { v.ErpDeliveryNumber = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := completeVehicle()
			tt.mutate(v)
			assert.Equal(t, tt.want, v.HasMissingData())
		})
	}
}

func TestDedupeVehicles(t *testing.T) {
	first := &Vehicle{VIN: " wvw1 ", CarPool: "first"}
	second := &Vehicle{VIN: "WVW1", CarPool: "second"}
	other := &Vehicle{VIN: "abc"}

	result := DedupeVehicles([]*Vehicle{first, second, nil, other, {VIN: "  "}})

	assert.Equal(t, []*Vehicle{first, other}, result)
	assert.Equal(t, "WVW1", first.VIN)
	assert.Equal(t, "ABC", other.VIN)
}

func TestCloneDetachesTimes(t *testing.T) {
	v := completeVehicle()
	c := v.Clone()
	*c.DeliveryDate = c.DeliveryDate.Add(time.Hour)

	assert.NotEqual(t, *v.DeliveryDate, *c.DeliveryDate)
}

func TestNewHistoryEntryDefaultsLabels(t *testing.T) {
	v := completeVehicle()
	v.TransactionState = StateRegistered
	v.TransactionType = TypeRegister

	entry := NewHistoryEntry(v, "ops", "", "", time.Unix(10, 0))

	assert.Equal(t, "Registered", entry.StateLabel)
	assert.Equal(t, "Register", entry.TypeLabel)
	assert.Equal(t, "ops", entry.Actor)

	unset := NewHistoryEntry(&Vehicle{VIN: "X"}, "ops", "", "", time.Unix(10, 0))
	assert.Empty(t, unset.StateLabel)
	assert.Empty(t, unset.TypeLabel)
}

func TestRemoteResponsePredicates(t *testing.T) {
	var nilResp *RemoteResponse
	assert.False(t, nilResp.IsSuccess())
	assert.False(t, nilResp.IsErrorBearing())

	assert.True(t, (&RemoteResponse{RegistrationID: "R1", Status: "SUCCESS"}).IsSuccess())
	assert.False(t, (&RemoteResponse{RegistrationID: "R1", Status: "PENDING"}).IsSuccess())
	assert.True(t, (&RemoteResponse{Errors: []string{}}).IsErrorBearing())
	assert.True(t, (&RemoteResponse{TransactionID: "T"}).IsErrorBearing())
}
