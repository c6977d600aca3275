package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	may := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SI-2024-05-001", Format("SI", may, 1))
	assert.Equal(t, "SI-2024-05-042", Format("SI", may, 42))
	assert.Equal(t, "SI-2024-05-1000", Format("SI", may, 1000))
	assert.Equal(t, "PI-2024-05-", Pattern("PI", may))
	assert.Equal(t, "2024-05", Period(may))
}

func TestParse(t *testing.T) {
	got, err := Parse("SR-2023-12-007")
	require.NoError(t, err)
	assert.Equal(t, Parsed{Prefix: "SR", Year: 2023, Month: 12, Seq: 7}, got)

	got, err = Parse("SI-2024-05-1000")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Seq)

	for _, bad := range []string{"", "SI-2024-05", "SI-2024-13-001", "SI-24-05-001", "SI-2024-05-abc", "-2024-05-001"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	date := time.Date(2025, time.January, 31, 23, 0, 0, 0, time.UTC)
	for _, seq := range []int64{1, 99, 999, 1000, 123456} {
		parsed, err := Parse(Format("SP", date, seq))
		require.NoError(t, err)
		assert.Equal(t, seq, parsed.Seq)
		assert.Equal(t, "SP", parsed.Prefix)
	}
}

func TestHighestSeq(t *testing.T) {
	may := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	numbers := []string{
		"SI-2024-05-001",
		"SI-2024-05-009",
		"SI-2024-05-1001",
		"SI-2024-06-500",
		"PI-2024-05-777",
		"SI-2024-05-x12",
		"manual-1",
	}
	assert.Equal(t, int64(1001), HighestSeq(numbers, "SI", may))
	assert.Equal(t, int64(777), HighestSeq(numbers, "PI", may))
	assert.Equal(t, int64(0), HighestSeq(numbers, "SR", may))
	assert.Equal(t, int64(0), HighestSeq(nil, "SI", may))
}
