package brand

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedID = uuid.MustParse("6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b")

func fixedIDs() uuid.UUID { return fixedID }

func TestParseBrand(t *testing.T) {
	b, err := ParseBrand("toyota")
	require.NoError(t, err)
	assert.Equal(t, Toyota, b)

	b, err = ParseBrand("FORD")
	require.NoError(t, err)
	assert.Equal(t, Ford, b)

	_, err = ParseBrand("Lada")
	assert.Error(t, err)
}

func TestFordPolicy(t *testing.T) {
	policy, err := ForBrand(Ford, fixedIDs)
	require.NoError(t, err)

	id, number := policy.GenerateRegistration("POOL-7")
	assert.Equal(t, "6F1C2A3B4D5E4F608A7B9C0D1E2F3A4B", id)
	assert.Equal(t, "POOL-7", number)

	id, number = policy.GenerateRegistration("")
	assert.Equal(t, id, number)

	id, number = policy.GenerateRegistration("  ")
	assert.Equal(t, id, number)
}

func TestToyotaPolicy(t *testing.T) {
	policy, err := ForBrand(Toyota, fixedIDs)
	require.NoError(t, err)

	id, number := policy.GenerateRegistration("A-VERY-LONG-CUSTOMER-REFERENCE-THAT-OVERFLOWS")
	assert.Len(t, id, 32)
	assert.LessOrEqual(t, len(number), 32)
	assert.True(t, strings.HasPrefix(number, "A-VERY-LONG-CUSTOMER-RE-"))
	assert.NotContains(t, number[24:], "=")
	assert.NotContains(t, number[24:], "+")
	assert.NotContains(t, number[24:], "/")

	again, againNumber := policy.GenerateRegistration("A-VERY-LONG-CUSTOMER-REFERENCE-THAT-OVERFLOWS")
	assert.Equal(t, id, again)
	assert.Equal(t, number, againNumber)
}

func TestToyotaPolicyShortReference(t *testing.T) {
	policy, err := ForBrand(Toyota, fixedIDs)
	require.NoError(t, err)

	_, number := policy.GenerateRegistration("P1")
	assert.Equal(t, "P1-bxwqO01e", number)
}

func TestToyotaPolicyBlankReference(t *testing.T) {
	policy, err := ForBrand(Toyota, fixedIDs)
	require.NoError(t, err)

	for _, ref := range []string{"", "   ", "\t"} {
		id, number := policy.GenerateRegistration(ref)
		assert.Equal(t, "6F1C2A3B4D5E4F608A7B9C0D1E2F3A4B", id, "ref %q", ref)
		assert.Equal(t, id, number, "ref %q", ref)
	}
}

func TestForBrandUnknown(t *testing.T) {
	_, err := ForBrand(Brand("Lada"), nil)
	assert.Error(t, err)
}
