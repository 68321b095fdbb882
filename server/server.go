// Package server implements the web-server core of spec.md §4.6-§4.8: a
// bounded request queue between a TCP acceptor and a worker pool, with a
// largest-first-eviction file cache shared by the workers. Shaped after
// the teacher's backend.go: a top-level Config + constructor
// (New, analogous to CreateAndServe) and a graceful teardown method
// (Shutdown, analogous to StopAndDelete).
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ostep-labs/gothread/internal/logging"
	"github.com/ostep-labs/gothread/server/internal/cache"
	"github.com/ostep-labs/gothread/server/internal/reqqueue"
	"github.com/ostep-labs/gothread/server/internal/worker"
)

// Server implements spec.md §4.7/§6's server_init/server_request/
// server_exit surface: an acceptor goroutine feeding a bounded queue,
// a worker pool, and a shared file cache.
type Server struct {
	cfg     Config
	queue   *reqqueue.Queue
	cache   *cache.Cache
	pool    *worker.Pool
	metrics *Metrics
	log     *logging.Logger
	rlog    *logrus.Logger

	ln net.Listener

	connsMu sync.Mutex
	conns   map[int]net.Conn
	nextFd  int

	cancel context.CancelFunc
}

// New implements spec.md §6's server_init(nr_threads, max_requests,
// max_cache_size): allocates the bounded queue and the cache, and spawns
// the worker pool. Distinct from the C original, New also owns the
// net.Listener setup (the external "listener" collaborator spec.md §1
// treats as out of scope) so the repo runs end to end.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, &Error{Op: "New", Code: ErrCodeListenFailed, Msg: err.Error(), Inner: err}
	}

	rlog := logrus.New()

	s := &Server{
		cfg:     cfg,
		queue:   reqqueue.New(cfg.MaxRequests),
		cache:   cache.New(cfg.MaxCacheSize),
		metrics: NewMetrics(),
		log:     logging.Default().With("server"),
		rlog:    rlog,
		ln:      ln,
		conns:   make(map[int]net.Conn),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.pool = worker.Start(ctx, worker.Config{
		NumWorkers:  cfg.NumThreads,
		Queue:       s.queue,
		Cache:       s.cache,
		CPUAffinity: cfg.CPUAffinity,
		Log:         s.log,
		Handler:     s.handle,
		Dial:        s.dial,
		OnFinished:  s.onFinished,
	})

	go s.accept()

	return s, nil
}

// accept runs the listener loop, assigning each accepted connection a
// connfd handle and pushing it onto the bounded queue via Request. This
// is the "listener" collaborator of spec.md §1, calling server_request.
func (s *Server) accept() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.connsMu.Lock()
		fd := s.nextFd
		s.nextFd++
		s.conns[fd] = conn
		s.connsMu.Unlock()
		s.metrics.RequestsAccepted.Add(1)
		s.Request(fd)
	}
}

// Request implements spec.md §6's server_request(server*, connfd): a
// blocking enqueue onto the bounded request queue.
func (s *Server) Request(connfd int) {
	s.queue.Push(connfd)
}

// dial resolves a connfd handle back into the net.Conn accept() stored
// for it, satisfying worker.Config.Dial.
func (s *Server) dial(connfd int) (net.Conn, error) {
	s.connsMu.Lock()
	conn, ok := s.conns[connfd]
	delete(s.conns, connfd)
	s.connsMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("server: no connection for fd %d", connfd)
	}
	return conn, nil
}

// handle implements spec.md §4.7 step 4 ("perform request"), delegating
// the cache/disk resolution to worker.DefaultHandler and wrapping it
// with a correlation id and structured per-request logging adapted from
// the teacher's logrus usage.
func (s *Server) handle(conn net.Conn, c *cache.Cache) (bool, error) {
	reqID := uuid.NewString()
	entry := s.rlog.WithField("request_id", reqID)

	hit, err := worker.DefaultHandler(s.cfg.DocRoot)(conn, c)
	if err != nil {
		entry.WithError(err).Debug("request failed")
	} else {
		cacheResult := "miss"
		if hit {
			cacheResult = "hit"
		}
		entry.WithField("cache", cacheResult).Debug("request served")
	}
	return hit, err
}

// onFinished records per-request metrics, matching the teacher's
// Metrics/Snapshot pattern of one atomic-counter update per completed unit.
func (s *Server) onFinished(latency time.Duration, hit bool, err error) {
	s.metrics.recordRequest(latency, hit, err != nil)
}

// Addr returns the listener's bound address, useful when Config's
// ListenAddr used an ephemeral port (":0") for tests.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Metrics returns the server's activity counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// CacheStats reports the file cache's current byte accounting.
func (s *Server) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// WarmCache inserts name/data into the server's file cache directly,
// bypassing a request — useful for pre-warming a cache from disk before
// serving any traffic. Subject to the same largest-first eviction and
// budget rules as a cache miss populated by a real request (spec.md §4.8).
func (s *Server) WarmCache(name string, data []byte) bool {
	return s.cache.Insert(name, data)
}

// Shutdown implements spec.md §4.7's server_exit: stop accepting new
// connections, set the exiting flag and wake all workers, join every
// worker, then the queue and cache are released with the Server.
func (s *Server) Shutdown() error {
	_ = s.ln.Close()
	s.cancel()
	s.queue.Shutdown()
	return s.pool.Shutdown()
}
