package reconcile

import "carreg/internal/registration/models"

// Outcome says what Finish does with one record.
type Outcome int

const (
	// OutcomeClose ends the transaction with the resolved state.
	OutcomeClose Outcome = iota + 1
	// OutcomeCloseWithError ends it and stores the extracted error.
	OutcomeCloseWithError
	// OutcomePending leaves the record in Progress awaiting confirmation.
	OutcomePending
	// OutcomeNoResponse ends it after the remote call produced nothing.
	OutcomeNoResponse
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClose:
		return "closed"
	case OutcomeCloseWithError:
		return "closed_with_error"
	case OutcomePending:
		return "pending"
	case OutcomeNoResponse:
		return "no_response"
	}
	return "unknown"
}

// Decide chooses between closing the transaction and leaving it in Progress.
func Decide(resp *models.RemoteResponse, regType models.TransactionType, backup *models.TransactionState, newState models.TransactionState) Outcome {
	if resp == nil {
		return OutcomeNoResponse
	}

	oldState := models.StateNone
	if backup != nil {
		oldState = *backup
	}

	if regType == models.TypeRegister && newState == models.StateRegistered && resp.Status == models.StatusSuccess {
		return OutcomeClose
	}
	stagnant := newState == oldState && resp.Status != models.StatusSuccess
	failed := newState == models.StateFailed
	rejected := newState == models.StateNotRegistered && regType != models.TypeUnregister
	if stagnant || failed || rejected {
		return OutcomeCloseWithError
	}
	return OutcomePending
}
