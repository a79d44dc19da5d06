package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampPlaceholder(t *testing.T) {
	assert.Equal(t, "_", TimestampIn(0, time.UTC))
	assert.Equal(t, "_", TimestampIn(-10, time.UTC))
}

func TestTimestampLayout(t *testing.T) {
	// 2021-06-03 04:05:06 UTC
	assert.Equal(t, "03-06-2021 04:05:06", TimestampIn(1622693106, time.UTC))
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, epoch := range []int64{1, 1622693106, 1700000000} {
		parsed, err := ParseTimestampIn(TimestampIn(epoch, time.UTC), time.UTC)
		require.NoError(t, err)
		assert.Equal(t, epoch, parsed)
	}

	parsed, err := ParseTimestampIn(Placeholder, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, parsed)

	_, err = ParseTimestampIn("yesterday", time.UTC)
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{5, "00:00:05"},
		{65, "00:01:05"},
		{3661, "01:01:01"},
		{86399, "23:59:59"},
		{86400 + 61, "00:01:01"}, // wraps past a day
		{-35, "-00:00:35"},
		{math.MaxInt64, "15:30:07"},
		{math.MinInt64, "-15:30:08"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "machines", Pluralize("machine", 0))
	assert.Equal(t, "machine", Pluralize("machine", 1))
	assert.Equal(t, "machines", Pluralize("machine", 2))
	assert.Equal(t, "machines", Pluralize("machine", 11))
	// English plural rule, so 21 is plural as well
	assert.Equal(t, "machines", Pluralize("machine", 21))
	assert.Equal(t, "runs", Pluralize("run", 31))
	assert.Equal(t, "3 specs", Count("spec", 3))
}
