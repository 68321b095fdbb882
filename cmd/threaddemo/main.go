// Command threaddemo runs the FIFO-yield scenario of spec.md §8
// scenario 1 as a small, runnable demonstration of the threading core:
// three threads created in order, then yield(ANY) round-robins the
// baton through them in strict FIFO order before returning to main.
package main

import (
	"flag"
	"fmt"
	"os"

	thread "github.com/ostep-labs/gothread"
	"github.com/ostep-labs/gothread/internal/logging"
)

func main() {
	var (
		maxThreads = flag.Int("max-threads", 16, "size of the thread table for this demo")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	rt := thread.NewRuntime(*maxThreads)
	defer rt.Close()

	rec := thread.NewScheduleRecorder()
	rec.Record("main")

	spawn := func(name string) {
		_, err := rt.Create(func(any) {
			rec.Record(name)
			rt.Yield(thread.ANY)
		}, nil)
		if err != nil {
			logger.Error("create failed", "name", name, "err", err)
			os.Exit(1)
		}
	}

	spawn("A")
	spawn("B")
	spawn("C")

	for i := 0; i < 4; i++ {
		if _, err := rt.Yield(thread.ANY); err != nil {
			logger.Error("yield failed", "err", err)
			os.Exit(1)
		}
	}
	rec.Record("main")

	fmt.Printf("schedule: %v\n", rec.Events())

	snap := rt.Metrics().Snapshot()
	fmt.Printf("threads created: %d, yields: %d\n", snap.ThreadsCreated, snap.Yields)
}
