package apihttp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oee-backend/internal/apperr"
)

func TestParseTimestampAcceptedFormats(t *testing.T) {
	want := time.Date(2026, time.March, 4, 8, 30, 0, 0, time.UTC)
	cases := []string{
		"2026-03-04 08:30:00",
		"2026-03-04 08:30:00 UTC",
		"2026-03-04T08:30:00Z",
		"2026-03-04T08:30:00.000000Z",
	}
	for _, text := range cases {
		t.Run(text, func(t *testing.T) {
			got, err := ParseTimestamp(text)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestampFraction(t *testing.T) {
	got, err := ParseTimestamp("2026-03-04T08:30:00.250000Z")
	require.NoError(t, err)
	assert.Equal(t, 250*int(time.Millisecond), got.Nanosecond())
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, text := range []string{"", "yesterday", "2026-13-40 99:99:99", "04/03/2026"} {
		_, err := ParseTimestamp(text)
		require.Error(t, err, "input %q", text)
		assert.True(t, apperr.IsValidation(err))
	}
}
