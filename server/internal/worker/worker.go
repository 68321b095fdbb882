// Package worker implements the worker pool of spec.md §4.7: N loops
// each popping a connection descriptor off the bounded request queue
// and servicing it against the file cache. CPU pinning is adapted from
// the teacher's internal/queue.Runner.ioLoop, which locks each worker
// to an OS thread and calls unix.SchedSetaffinity before entering its
// main loop.
package worker

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/ostep-labs/gothread/internal/logging"
	"github.com/ostep-labs/gothread/server/internal/cache"
	"github.com/ostep-labs/gothread/server/internal/reqqueue"
	"github.com/ostep-labs/gothread/server/internal/request"
)

// Handler resolves one accepted connection end to end: read the
// request, serve from cache or disk, send the response. Supplied by
// the server package so worker stays independent of net.Listener setup.
type Handler func(connfd net.Conn, cache *cache.Cache) (cacheHit bool, err error)

// Pool runs n worker goroutines pulling from q until Shutdown.
type Pool struct {
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// Config configures a worker Pool.
type Config struct {
	NumWorkers  int
	Queue       *reqqueue.Queue
	Cache       *cache.Cache
	Handler     Handler
	CPUAffinity []int
	Log         *logging.Logger
	// Dial resolves a connfd (as tracked by the caller, e.g. an fd
	// table or a direct net.Conn wrapped as an int handle) back into a
	// net.Conn. Kept as a hook rather than a concrete type so tests can
	// substitute in-memory connections.
	Dial       func(connfd int) (net.Conn, error)
	OnFinished func(latency time.Duration, hit bool, err error)
}

// Start spawns cfg.NumWorkers workers, each running the request loop
// described in spec.md §4.7, supervised by golang.org/x/sync/errgroup
// so Wait reports the first worker error (if any) and every worker is
// joined exactly once.
func Start(ctx context.Context, cfg Config) *Pool {
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	p := &Pool{group: group, ctx: gctx, cancel: cancel}

	for i := 0; i < cfg.NumWorkers; i++ {
		workerID := i
		group.Go(func() error {
			runLoop(gctx, workerID, cfg)
			return nil
		})
	}
	return p
}

// runLoop is one worker's body: pin to an OS thread and (optionally) a
// CPU, then pop-and-serve until the queue reports shutdown.
func runLoop(ctx context.Context, id int, cfg Config) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if len(cfg.CPUAffinity) > 0 {
		cpu := cfg.CPUAffinity[id%len(cfg.CPUAffinity)]
		var mask unix.CPUSet
		mask.Set(cpu)
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			if cfg.Log != nil {
				cfg.Log.Warn("worker: failed to set CPU affinity", "worker", id, "cpu", cpu, "err", err)
			}
		} else if cfg.Log != nil {
			cfg.Log.Debug("worker: pinned to CPU", "worker", id, "cpu", cpu)
		}
	}

	for {
		connfd, ok := cfg.Queue.Pop()
		if !ok {
			return
		}
		serveOne(ctx, id, connfd, cfg)
	}
}

func serveOne(_ context.Context, id int, connfd int, cfg Config) {
	start := time.Now()
	conn, err := cfg.Dial(connfd)
	if err != nil {
		if cfg.Log != nil {
			cfg.Log.Warn("worker: dial failed", "worker", id, "connfd", connfd, "err", err)
		}
		if cfg.OnFinished != nil {
			cfg.OnFinished(time.Since(start), false, err)
		}
		return
	}

	hit, err := cfg.Handler(conn, cfg.Cache)
	if err != nil && cfg.Log != nil {
		cfg.Log.Warn("worker: request failed", "worker", id, "connfd", connfd, "err", err)
	}
	if cfg.OnFinished != nil {
		cfg.OnFinished(time.Since(start), hit, err)
	}
}

// DefaultHandler resolves the request against docRoot, consulting cache
// before falling back to disk, and populates the cache on a miss.
func DefaultHandler(docRoot string) Handler {
	return func(conn net.Conn, c *cache.Cache) (bool, error) {
		req, err := request.Init(conn)
		if err != nil {
			conn.Close()
			return false, err
		}
		defer req.Destroy()

		if entry, hit := c.Lookup(req.Path()); hit {
			req.ReadFile(request.FileData{Name: entry.Name, Buf: entry.Buf, Size: entry.Size})
			return true, req.SendFile()
		}

		buf, err := readDocRootFile(docRoot, req.Path())
		if err != nil {
			req.ReadFile(request.FileData{})
			return false, req.SendFile()
		}
		c.Insert(req.Path(), buf)
		req.ReadFile(request.FileData{Name: req.Path(), Buf: buf, Size: len(buf)})
		return false, req.SendFile()
	}
}

// readDocRootFile resolves reqPath against docRoot, rejecting any
// resolved path that escapes docRoot (defends against a ".." segment
// that survived request.Init's filepath.Clean).
func readDocRootFile(docRoot, reqPath string) ([]byte, error) {
	full := filepath.Join(docRoot, reqPath)
	rel, err := filepath.Rel(docRoot, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(full)
}

// Shutdown cancels the pool's context and waits for every worker to
// return (they exit once Queue.Pop reports the queue is shutting down).
func (p *Pool) Shutdown() error {
	p.cancel()
	return p.group.Wait()
}
