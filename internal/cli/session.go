package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/config"
	"github.com/mvp-joe/symmap/internal/indexer"
	"github.com/mvp-joe/symmap/internal/query"
	"github.com/mvp-joe/symmap/internal/storage"
)

// session is a map cache over one project root, warm-started from the
// configured store.
type session struct {
	store   storage.Store
	cache   *cache.Cache
	loader  *query.Loader
	service *query.Service
}

func openSession(ctx context.Context, root string, cfg *config.Config) (*session, error) {
	store, err := cfg.OpenStore(root)
	if err != nil {
		return nil, err
	}
	opts := cfg.CacheOptions()
	if store != nil {
		opts.Store = store
	}

	c, err := cache.New(ctx, indexer.NewMapper(cfg.MapperOptions()...), opts)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	loader, err := query.NewLoader(root, c)
	if err != nil {
		c.Close()
		closeStore(store)
		return nil, err
	}

	return &session{
		store:   store,
		cache:   c,
		loader:  loader,
		service: query.NewService(c),
	}, nil
}

// load brings path up to date in the cache and returns its file id.
func (s *session) load(ctx context.Context, path string) (string, *cache.Snapshot, error) {
	return s.loader.Load(ctx, path)
}

func (s *session) Close() error {
	err := s.cache.Close()
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

// writeJSON writes v indented, followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
