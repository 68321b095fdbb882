package server_test

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ostep-labs/gothread/server"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func getRequest(t *testing.T, addr net.Addr, path string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	fmt.Fprintf(conn, "GET %s HTTP/1.0\r\n\r\n", path)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	status, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return status
}

// TestServerServesFromDiskThenCache exercises spec.md §4.7/§4.8 end to
// end: the first request for a file is a cache miss served from disk;
// the second is a cache hit served from the in-memory copy.
func TestServerServesFromDiskThenCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.txt", "hello, world")

	cfg := server.NewTestConfig(dir)
	srv, err := server.New(cfg)
	require.NoError(t, err)
	defer srv.Shutdown()

	status := getRequest(t, srv.Addr(), "/hello.txt")
	require.Contains(t, status, "200")

	require.Eventually(t, func() bool {
		return srv.CacheStats().Entries == 1
	}, time.Second, 10*time.Millisecond)

	status = getRequest(t, srv.Addr(), "/hello.txt")
	require.Contains(t, status, "200")

	require.Eventually(t, func() bool {
		snap := srv.Metrics().Snapshot()
		return snap.CacheHits >= 1 && snap.CacheMisses >= 1
	}, time.Second, 10*time.Millisecond)
}

// TestServerMissingFileReturns404 exercises the cache-miss-with-no-insert
// path of spec.md §7: a request for a file that doesn't exist is
// contained inside request handling and doesn't crash the worker.
func TestServerMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	cfg := server.NewTestConfig(dir)
	srv, err := server.New(cfg)
	require.NoError(t, err)
	defer srv.Shutdown()

	status := getRequest(t, srv.Addr(), "/does-not-exist.txt")
	require.Contains(t, status, "404")
}

// TestServerBoundedQueueThroughput implements a scaled-down version of
// spec.md §8 scenario 5: many concurrent requests against a small
// worker pool and queue are all processed exactly once.
func TestServerBoundedQueueThroughput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.txt", "data")

	cfg := server.NewTestConfig(dir)
	cfg.NumThreads = 4
	cfg.MaxRequests = 4
	srv, err := server.New(cfg)
	require.NoError(t, err)
	defer srv.Shutdown()

	const n = 50
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			status := getRequest(t, srv.Addr(), "/f.txt")
			require.Contains(t, status, "200")
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	require.Eventually(t, func() bool {
		return srv.Metrics().Snapshot().RequestsProcessed == n
	}, 2*time.Second, 10*time.Millisecond)
}
