package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverrestarter/internal/shared"
)

func mustEntry(t *testing.T, action Action, expr, msg string) Entry {
	t.Helper()
	e, err := NewEntry(action, expr, msg)
	require.NoError(t, err)
	return e
}

func TestSelectNext_PicksEarliest(t *testing.T) {
	set := Set{
		mustEntry(t, Stop, "0 4 * * *", ""),
		mustEntry(t, Restart, "0 2 * * *", "nightly"),
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	next, ok := SelectNext(set, now)
	require.True(t, ok)
	assert.Equal(t, Restart, next.Entry.Action)
	assert.Equal(t, "nightly", next.Entry.Message)
	assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), next.FireAt)
}

func TestSelectNext_Empty(t *testing.T) {
	_, ok := SelectNext(nil, time.Now())
	assert.False(t, ok)
	_, ok = SelectNext(Set{}, time.Now())
	assert.False(t, ok)
}

func TestSelectNext_TieGoesToFirst(t *testing.T) {
	set := Set{
		mustEntry(t, Restart, "0 3 * * *", "first"),
		mustEntry(t, Stop, "0 3 * * *", "second"),
	}
	for i := 0; i < 10; i++ {
		next, ok := SelectNext(set, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, "first", next.Entry.Message)
	}
}

func TestSelectNext_SkipsEntriesWithoutFuture(t *testing.T) {
	set := Set{
		mustEntry(t, Restart, "0 0 30 2 *", "never"),
		mustEntry(t, Stop, "0 5 * * *", "later"),
	}
	next, ok := SelectNext(set, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "later", next.Entry.Message)

	_, ok = SelectNext(set[:1], time.Now())
	assert.False(t, ok)
}

func TestNewEntry(t *testing.T) {
	e := mustEntry(t, Restart, "0 2 * * *", "")
	assert.Equal(t, DefaultMessage, e.Message)

	_, err := NewEntry(Stop, "0 2 * *", "x")
	assert.True(t, shared.IsConfiguration(err))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("Stop")
	require.NoError(t, err)
	assert.Equal(t, Stop, a)

	a, err = ParseAction("Restart")
	require.NoError(t, err)
	assert.Equal(t, Restart, a)

	_, err = ParseAction("restart")
	assert.True(t, shared.IsConfiguration(err))

	assert.Equal(t, "Restart", Restart.String())
	assert.Equal(t, "Action(7)", Action(7).String())
}
