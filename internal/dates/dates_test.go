package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseKnownLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"Tue, 04 Mar 2025 10:15:00 +0500", time.Date(2025, 3, 4, 5, 15, 0, 0, time.UTC)},
		{"Tue, 04 Mar 2025 10:15:00 GMT", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)},
		{"Tue, 4 Mar 2025 10:15:00 +0000", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)},
		{"2025-03-04T10:15:00+05:00", time.Date(2025, 3, 4, 5, 15, 0, 0, time.UTC)},
		{"2025-03-04T10:15:00", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)},
		{"2025-03-04 10:15:00", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)},
		{"04.03.2025", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{" 04.03.2025 10:15 ", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)},
		{"4 марта 2025, 10:15", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)},
		{"12 Мая 2025", time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		require.True(t, ok, tc.in)
		require.True(t, tc.want.Equal(got), "%q: want %v got %v", tc.in, tc.want, got)
		require.Equal(t, time.UTC, got.Location())
	}
}

func TestParseLenientFallback(t *testing.T) {
	t.Parallel()

	got, ok := Parse("March 4, 2025")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "вчера", "not a date"} {
		_, ok := Parse(in)
		require.False(t, ok, in)
		require.Equal(t, Epoch, ParseOrEpoch(in))
	}
}

func TestParseRejectsPreEpoch(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"0000", "12.", "1/", "31.12.1969", "1969-12-31T23:59:59Z"} {
		_, ok := Parse(in)
		require.False(t, ok, in)
	}

	got, ok := Parse("1970-01-01T00:00:00Z")
	require.True(t, ok)
	require.Equal(t, Epoch, got)
}
