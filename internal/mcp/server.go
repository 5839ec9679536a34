package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	slogctx "github.com/veqryn/slog-context"

	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/config"
	"github.com/mvp-joe/symmap/internal/indexer"
	"github.com/mvp-joe/symmap/internal/query"
	"github.com/mvp-joe/symmap/internal/storage"
	"github.com/mvp-joe/symmap/internal/watcher"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	config      *MCPServerConfig
	backend     *Backend
	store       storage.Store
	coordinator *watcher.WatchCoordinator
	mcp         *server.MCPServer
}

// NewMCPServer creates the map cache, its optional warm-start store and
// file watcher, and registers the symmap tools.
func NewMCPServer(ctx context.Context, cfg *MCPServerConfig) (*MCPServer, error) {
	if cfg == nil || cfg.ProjectPath == "" {
		return nil, fmt.Errorf("project path is required")
	}
	conf := cfg.Config
	if conf == nil {
		conf = config.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	mapper := indexer.NewMapper(conf.MapperOptions()...)

	store, err := conf.OpenStore(cfg.ProjectPath)
	if err != nil {
		return nil, err
	}
	opts := conf.CacheOptions()
	if store != nil {
		opts.Store = store
	}

	c, err := cache.New(ctx, mapper, opts)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	loader, err := query.NewLoader(cfg.ProjectPath, c)
	if err != nil {
		c.Close()
		closeStore(store)
		return nil, err
	}

	backend := &Backend{
		Loader:       loader,
		Service:      query.NewService(c),
		Cache:        c,
		Metrics:      NewServerMetrics(),
		IncludeLocal: conf.Mapping.IncludeLocal,
	}

	mcpServer := server.NewMCPServer(
		"symmap",
		version,
		server.WithToolCapabilities(true),
	)
	AddOutlineTool(mcpServer, backend)
	AddLookupTool(mcpServer, backend)
	AddFindTool(mcpServer, backend)
	AddStatusTool(mcpServer, backend)

	s := &MCPServer{
		config:  cfg,
		backend: backend,
		store:   store,
		mcp:     mcpServer,
	}

	if cfg.Watch {
		discovery, err := conf.Discovery(loader.Root(), mapper.Supports)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to compile path patterns: %w", err)
		}
		fw, err := watcher.NewFileWatcher([]string{loader.Root()}, watcher.WithFilter(discovery.Matches))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		s.coordinator = watcher.NewWatchCoordinator(fw, c, loader)
		s.coordinator.OnInvalidate(func(fileIDs []string) {
			backend.Metrics.RecordInvalidation(len(fileIDs))
		})
	}

	return s, nil
}

// Backend returns what the tools read from.
func (s *MCPServer) Backend() *Backend {
	return s.backend
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := slogctx.FromCtx(ctx)

	if s.coordinator != nil {
		go func() {
			if err := s.coordinator.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("file watcher stopped", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting MCP server on stdio", "root", s.backend.Loader.Root(), "watch", s.coordinator != nil)
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		log.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the cache and the store.
func (s *MCPServer) Close() error {
	err := s.backend.Cache.Close()
	if cerr := closeStore(s.store); err == nil {
		err = cerr
	}
	return err
}

func closeStore(store storage.Store) error {
	if store == nil {
		return nil
	}
	return store.Close()
}
