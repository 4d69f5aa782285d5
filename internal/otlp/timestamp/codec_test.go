package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitJoinRoundTrip(t *testing.T) {
	cases := []int64{
		0,
		1,
		999,
		1000,
		1_700_000_000_123_456_789,
		1,
		9223372036854775807, // max int64
	}
	for _, n := range cases {
		ts, frac := Split(n)
		got := Join(ts, frac)
		assert.Equal(t, n, got, "round trip for %d", n)
	}
}

func TestSplitZeroIsEpoch(t *testing.T) {
	ts, frac := Split(0)
	assert.True(t, ts.Equal(time.Unix(0, 0).UTC()))
	assert.Equal(t, int16(0), frac)
}

func TestSplitFractionRange(t *testing.T) {
	ts, frac := Split(1_700_000_000_123_456_789)
	require.True(t, frac >= 0 && frac < 1000)
	assert.Equal(t, int16(789), frac)
	assert.Equal(t, int64(1_700_000_000_123_456), ts.UnixMicro())
}

func TestObservedOrFallbackUsesTimeWhenPresent(t *testing.T) {
	now := func() time.Time { return time.Unix(999, 0) }
	got := ObservedOrFallback(42, 100, now)
	assert.Equal(t, int64(42), got)
}

func TestObservedOrFallbackUsesObservedWhenTimeZero(t *testing.T) {
	now := func() time.Time { return time.Unix(999, 0) }
	got := ObservedOrFallback(0, 100, now)
	assert.Equal(t, int64(100), got)
}

func TestObservedOrFallbackUsesNowWhenBothZero(t *testing.T) {
	now := func() time.Time { return time.Unix(0, 555) }
	got := ObservedOrFallback(0, 0, now)
	assert.Equal(t, int64(555), got)
}
