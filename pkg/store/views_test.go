package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 9, 8, 7, 6, 5000, time.FixedZone("x", -3*60*60))

	s := FormatTimestamp(in)
	assert.Equal(t, "2024-03-09T11:07:06.000005Z", s)

	out, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestTimestampSortsLexically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	earlier := FormatTimestamp(base.Add(999 * time.Microsecond))
	later := FormatTimestamp(base.Add(time.Second))

	assert.Less(t, earlier, later)
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	assert.Equal(t, "app.db?cache=shared&_pragma=foreign_keys(1)", sqliteDSN("app.db?cache=shared"))
}
