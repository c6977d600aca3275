package documents

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversion(t *testing.T) {
	for _, raw := range []string{"0", "283.5", "13.50", "-4.25", "123456789.99"} {
		d := decimal.RequireFromString(raw)
		assert.True(t, d.Equal(fromNumeric(toNumeric(d))), raw)
	}
	assert.True(t, fromNumeric(pgtype.Numeric{}).IsZero())
}

func TestNumericKeepsScale(t *testing.T) {
	n := toNumeric(decimal.RequireFromString("13.50"))
	require.True(t, n.Valid)
	assert.Equal(t, int64(1350), n.Int.Int64())
	assert.Equal(t, int32(-2), n.Exp)

	zero := toNumeric(decimal.Zero)
	require.True(t, zero.Valid)
	require.NotNil(t, zero.Int)
	assert.Zero(t, zero.Int.Sign())
}

func TestDateConversion(t *testing.T) {
	assert.False(t, toDate(time.Time{}).Valid)
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, fromDate(toDate(day)))
	assert.True(t, fromDate(pgtype.Date{}).IsZero())
}
