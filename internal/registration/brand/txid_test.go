package brand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "carreg/pkg/domain-errors"
)

func TestTransactionIDsUseTicks(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	ids := NewTransactionIDs(func() time.Time { return at })

	id, err := ids.Next()
	require.NoError(t, err)
	assert.Equal(t, "638397614450000006", id)
}

func TestTransactionIDsStrictlyIncrease(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ids := NewTransactionIDs(func() time.Time { return at })

	first, err := ids.Next()
	require.NoError(t, err)
	second, err := ids.Next()
	require.NoError(t, err)

	assert.Less(t, first, second)
	assert.LessOrEqual(t, len(second), 32)
}

func TestTransactionIDsClockUnavailable(t *testing.T) {
	ids := NewTransactionIDs(func() time.Time { return time.Time{} })

	_, err := ids.Next()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
