package integration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	thread "github.com/ostep-labs/gothread"
)

// TestJoin implements spec.md §8 scenario 3: main creates W, which
// sleeps 10ms then exits; main calls wait(W); wait only returns once
// W's state has reached EXITED.
func TestJoin(t *testing.T) {
	rt := thread.NewRuntime(16)
	defer rt.Close()

	w, err := rt.Create(func(any) {
		time.Sleep(10 * time.Millisecond)
	}, nil)
	require.NoError(t, err)

	before := time.Now()
	_, err = rt.Wait(w)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(before), 10*time.Millisecond)

	state, ok := rt.State(w)
	require.True(t, ok)
	require.Equal(t, "EXITED", state.String())
}
