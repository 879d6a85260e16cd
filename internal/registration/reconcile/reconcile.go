// Package reconcile maps a remote registration response onto vehicle state.
// Everything here is a pure function of its arguments.
package reconcile

import (
	"strings"

	"carreg/internal/registration/models"
)

// MultiErrorCode is the synthetic code used when a response lists several errors.
const MultiErrorCode = "MULTI"

// MultiErrorSeparator joins messages of a multi-error response.
const MultiErrorSeparator = " // "

// Resolve derives the new state of one vehicle.
//
// backup is the state recorded before the transaction began; nil means no
// backup was taken. firstTransaction is only consulted for error-bearing
// Register responses and for Unregister.
func Resolve(resp *models.RemoteResponse, regType models.TransactionType, backup *models.TransactionState, firstTransaction bool) models.TransactionState {
	oldState := models.StateNone
	if backup != nil {
		oldState = *backup
	}

	if resp == nil {
		if backup != nil {
			return oldState
		}
		if regType == models.TypeRegister {
			return models.StateNotRegistered
		}
		return models.StateFailed
	}

	switch regType {
	case models.TypeRegister:
		if resp.IsSuccess() {
			return models.StateRegistered
		}
		if resp.IsErrorBearing() {
			if firstTransaction {
				return models.StateNotRegistered
			}
			return oldState
		}
	case models.TypeUnregister:
		if !firstTransaction {
			if resp.RegistrationID != "" {
				return models.StateNotRegistered
			}
			if resp.IsErrorBearing() {
				return oldState
			}
		}
	case models.TypeOverride, models.TypeReset:
		if resp.RegistrationID != "" {
			return models.StateProgress
		}
		if resp.IsErrorBearing() {
			return oldState
		}
	}
	return oldState
}

// NeedsHistory reports whether Resolve will read firstTransaction for these
// inputs, so callers can skip the history lookup otherwise.
func NeedsHistory(resp *models.RemoteResponse, regType models.TransactionType) bool {
	if resp == nil {
		return false
	}
	switch regType {
	case models.TypeRegister:
		return !resp.IsSuccess() && resp.IsErrorBearing()
	case models.TypeUnregister:
		return true
	default:
		return false
	}
}

// ExtractedError is the single representative error stored on a closed record.
type ExtractedError struct {
	Code          string
	Message       string
	CorrelationID string
}

// ExtractError picks the error to store for resp. ok is false when the
// response carries neither a correlation id nor any error entries.
func ExtractError(resp *models.RemoteResponse) (ExtractedError, bool) {
	if resp == nil {
		return ExtractedError{}, false
	}
	if resp.TransactionID != "" {
		return ExtractedError{
			Code:          resp.ErrorCode,
			Message:       resp.ErrorMessage,
			CorrelationID: resp.TransactionID,
		}, true
	}
	switch n := len(resp.Errors); {
	case n > 1:
		return ExtractedError{
			Code:          MultiErrorCode,
			Message:       strings.Join(resp.Errors, MultiErrorSeparator),
			CorrelationID: resp.RegistrationID,
		}, true
	case n == 1:
		return ExtractedError{Code: resp.Errors[0], Message: resp.Errors[0]}, true
	}
	return ExtractedError{}, false
}
