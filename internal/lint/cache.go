package lint

import (
	"os"

	"github.com/routable/routable-lint/internal/cache"
	"github.com/routable/routable-lint/internal/config"
)

// RemoteTokenEnv names the environment variable holding the bearer token for
// the remote findings cache.
const RemoteTokenEnv = "ROUTABLE_CACHE_TOKEN"

// NewCache builds the cache stack described by cfg: memory over disk, with a
// remote tier behind both when a URL is configured. It returns nil when
// caching is disabled.
func NewCache(cfg config.CacheConfig) cache.CacheManager {
	if !cfg.IsEnabled() {
		return nil
	}

	var stack cache.CacheManager = cache.NewMultiTierCache(
		cache.NewMemoryCache(),
		cache.NewLocalCache(cfg.Dir),
		cache.DefaultMultiTierConfig(),
	)

	if cfg.RemoteURL != "" {
		var opts []cache.RemoteCacheOption
		if token := os.Getenv(RemoteTokenEnv); token != "" {
			opts = append(opts, cache.WithToken(token))
		}
		stack = cache.NewMultiTierCache(stack, cache.NewRemoteCache(cfg.RemoteURL, opts...), cache.DefaultMultiTierConfig())
	}
	return stack
}
