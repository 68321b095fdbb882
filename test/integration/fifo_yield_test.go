// Package integration_test exercises spec.md §8's threading scenarios
// (1-4) against the public thread API, not its internals. Scenarios 5
// and 6 are tested in server/internal/reqqueue and server/internal/cache.
package integration_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	thread "github.com/ostep-labs/gothread"
)

// TestFIFOYieldSchedule implements spec.md §8 scenario 1: threads A, B,
// C created in that order; from main, yield(ANY) four times; the
// observed schedule is main→A→B→C→main.
func TestFIFOYieldSchedule(t *testing.T) {
	rt := thread.NewRuntime(16)
	defer rt.Close()

	rec := thread.NewScheduleRecorder()
	rec.Record("main")

	spawn := func(name string) thread.Tid {
		tid, err := rt.Create(func(any) {
			rec.Record(name)
			rt.Yield(thread.ANY)
		}, nil)
		require.NoError(t, err)
		return tid
	}

	spawn("A")
	spawn("B")
	spawn("C")

	// The first yield(ANY) round-robins the baton through A, B and C —
	// each records itself and immediately yields back into the ready
	// queue, so main doesn't regain the baton until all three have run
	// once. The second yield(ANY) resumes A, B and C in turn, each
	// returning from its own Yield and exiting; the last two find only
	// main schedulable and return NONE as no-ops.
	for i := 0; i < 4; i++ {
		_, err := rt.Yield(thread.ANY)
		require.NoError(t, err)
	}
	rec.Record("main")

	require.Equal(t, []string{"main", "A", "B", "C", "main"}, rec.Events())
}
