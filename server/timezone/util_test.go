package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimezone(t *testing.T) {
	loc, err := ParseTimezone("Asia/Tokyo")
	require.NoError(t, err)
	require.Equal(t, "Asia/Tokyo", loc.String())

	loc, err = ParseTimezone("")
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	loc, err = ParseTimezone("Not/AZone")
	require.Error(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestPartitionDate(t *testing.T) {
	tokyo, err := ParseTimezone("Asia/Tokyo")
	require.NoError(t, err)

	// 23:30 UTC is already the next day in Tokyo.
	instant := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)
	require.Equal(t, "2026-08-29", PartitionDate(instant, time.UTC))
	require.Equal(t, "2026-08-30", PartitionDate(instant, tokyo))
}

func TestDayBounds(t *testing.T) {
	instant := time.Date(2026, 8, 29, 15, 4, 5, 0, time.UTC)
	start, end := DayBounds(instant, time.UTC)
	require.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), end)
	require.True(t, instant.After(start) && instant.Before(end))
}
