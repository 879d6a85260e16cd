package models

import (
	"fmt"
)

// TransactionState is the persisted outcome of the latest registration
// transaction for a vehicle. StateNone means "unset" and is stored as NULL.
type TransactionState int

const (
	StateNone TransactionState = iota
	StateNotRegistered
	StateRegistered
	StateProgress
	StateFailed
	StateMissingData
	StateActionRequired
)

var transactionStateLabels = []struct {
	state TransactionState
	label string
}{
	{StateNone, "None"},
	{StateNotRegistered, "NotRegistered"},
	{StateRegistered, "Registered"},
	{StateProgress, "Progress"},
	{StateFailed, "Failed"},
	{StateMissingData, "MissingData"},
	{StateActionRequired, "ActionRequired"},
}

func (s TransactionState) String() string {
	for _, e := range transactionStateLabels {
		if e.state == s {
			return e.label
		}
	}
	return fmt.Sprintf("TransactionState(%d)", int(s))
}

// IsValid reports whether s appears in the mapping table.
func (s TransactionState) IsValid() bool {
	for _, e := range transactionStateLabels {
		if e.state == s {
			return true
		}
	}
	return false
}

// IsSet reports whether the state carries a value other than StateNone.
func (s TransactionState) IsSet() bool {
	return s != StateNone
}

// Ptr returns a pointer to a copy of s, for optional backups.
func (s TransactionState) Ptr() *TransactionState {
	return &s
}

// ParseTransactionState resolves a label from the mapping table.
func ParseTransactionState(label string) (TransactionState, error) {
	for _, e := range transactionStateLabels {
		if e.label == label {
			return e.state, nil
		}
	}
	return StateNone, fmt.Errorf("unknown transaction state %q", label)
}

// TransactionStateFromInt maps a stored integer back to a state.
func TransactionStateFromInt(v int) (TransactionState, error) {
	s := TransactionState(v)
	if !s.IsValid() {
		return StateNone, fmt.Errorf("unknown transaction state value %d", v)
	}
	return s, nil
}

func (s TransactionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TransactionState) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TransactionType is fixed for the lifetime of one transaction.
// Values outside the table are kept as-is so they can reach the
// "unknown type" reconciliation branch.
type TransactionType int

const (
	TypeRegister TransactionType = iota + 1
	TypeUnregister
	TypeOverride
	TypeReset
)

var transactionTypeLabels = []struct {
	typ   TransactionType
	label string
}{
	{TypeRegister, "Register"},
	{TypeUnregister, "Unregister"},
	{TypeOverride, "Override"},
	{TypeReset, "Reset"},
}

func (t TransactionType) String() string {
	for _, e := range transactionTypeLabels {
		if e.typ == t {
			return e.label
		}
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

func (t TransactionType) IsValid() bool {
	for _, e := range transactionTypeLabels {
		if e.typ == t {
			return true
		}
	}
	return false
}

func ParseTransactionType(label string) (TransactionType, error) {
	for _, e := range transactionTypeLabels {
		if e.label == label {
			return e.typ, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", label)
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
