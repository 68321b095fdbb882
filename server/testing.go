package server

// NewTestConfig returns a Config suitable for tests: a small thread
// count and queue/cache capacity, an ephemeral listen port, and the
// given docRoot. Adapted from the root package's testing.go pattern of
// exporting small, dependency-free test doubles alongside the package
// they test.
func NewTestConfig(docRoot string) Config {
	cfg := DefaultConfig()
	cfg.NumThreads = 2
	cfg.MaxRequests = 4
	cfg.MaxCacheSize = 1 << 20
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.DocRoot = docRoot
	return cfg
}
