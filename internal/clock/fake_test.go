package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeClock_AfterFuncFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "late") })
	c.AfterFunc(time.Second, func() { order = append(order, "early") })
	require.Equal(t, 2, c.Pending())

	c.Advance(500 * time.Millisecond)
	require.Empty(t, order)

	c.Advance(2 * time.Second)
	require.Equal(t, []string{"early", "late"}, order)
	require.Equal(t, start.Add(2500*time.Millisecond), c.Now())
	require.Zero(t, c.Pending())
}

func TestFakeClock_StopPreventsFire(t *testing.T) {
	c := Fake(time.Now())
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	c.Advance(time.Minute)
	require.False(t, fired)
}
