// Command webserver runs the multi-threaded web-server core of spec.md
// §4.6-§4.8 as a standalone static file server, reading its defaults
// from flags (or a TOML config file) in the teacher's cmd/ublk-mem
// layout: flags override compiled-in defaults, a logger is configured
// up front, and shutdown is driven by an os/signal channel.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ostep-labs/gothread/internal/logging"
	"github.com/ostep-labs/gothread/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file (overlays flag defaults)")
		threads    = flag.Int("threads", 4, "number of worker threads")
		queue      = flag.Int("queue", 16, "bounded request queue capacity")
		cacheSize  = flag.Int("cache", 64*1024*1024, "file cache budget in bytes")
		addr       = flag.String("addr", ":8080", "listen address")
		docRoot    = flag.String("docroot", ".", "document root to serve")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := server.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg.NumThreads = *threads
		cfg.MaxRequests = *queue
		cfg.MaxCacheSize = *cacheSize
		cfg.ListenAddr = *addr
		cfg.DocRoot = *docRoot
	}

	srv, err := server.New(cfg)
	if err != nil {
		logger.Error("failed to start server", "err", err)
		os.Exit(1)
	}

	logger.Info("server listening",
		"addr", srv.Addr().String(),
		"threads", cfg.NumThreads,
		"queue_capacity", cfg.MaxRequests,
		"cache_bytes", cfg.MaxCacheSize,
		"doc_root", cfg.DocRoot)

	fmt.Printf("listening on %s, serving %s\n", srv.Addr(), cfg.DocRoot)
	fmt.Printf("press Ctrl+C to stop\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	if err := srv.Shutdown(); err != nil {
		logger.Error("error during shutdown", "err", err)
		os.Exit(1)
	}

	snap := srv.Metrics().Snapshot()
	logger.Info("server stopped",
		"requests_processed", snap.RequestsProcessed,
		"cache_hits", snap.CacheHits,
		"cache_misses", snap.CacheMisses)
}
