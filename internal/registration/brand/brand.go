// Package brand generates registration identifiers per vehicle brand.
package brand

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Brand selects a registration-number policy.
type Brand string

const (
	Toyota Brand = "Toyota"
	Ford   Brand = "Ford"
)

// ParseBrand accepts a brand name case-insensitively.
func ParseBrand(name string) (Brand, error) {
	switch {
	case strings.EqualFold(name, string(Toyota)):
		return Toyota, nil
	case strings.EqualFold(name, string(Ford)):
		return Ford, nil
	}
	return "", fmt.Errorf("unsupported brand %q", name)
}

// Policy produces the registration id and the registration number sent to
// the remote service. Implementations are pure given their IDSource.
type Policy interface {
	Brand() Brand
	GenerateRegistration(customerReference string) (registrationID, registrationNumber string)
}

// IDSource yields the random component of generated identifiers.
type IDSource func() uuid.UUID

// RandomIDs is the production IDSource.
func RandomIDs() uuid.UUID { return uuid.New() }

// ForBrand returns the policy for b.
func ForBrand(b Brand, ids IDSource) (Policy, error) {
	if ids == nil {
		ids = RandomIDs
	}
	switch b {
	case Toyota:
		return toyota{ids: ids}, nil
	case Ford:
		return ford{ids: ids}, nil
	}
	return nil, fmt.Errorf("unsupported brand %q", b)
}

func registrationID(id uuid.UUID) string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}
