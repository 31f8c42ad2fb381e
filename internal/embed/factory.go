package embed

// New constructs the configured embedder. Only the "static" backend is built in; it requires
// no network access or model download and is therefore also the default used by tests and CI.
// cacheSize bounds the LRU wrapper (see CachedEmbedder); a non-positive value uses
// DefaultCacheSize.
func New(provider string, cacheSize int) (Embedder, error) {
	var base Embedder
	switch provider {
	case "", "static":
		base = NewStaticEmbedder()
	default:
		// Unknown providers fall back to the static backend rather than failing a whole
		// indexing run; callers that care can compare ModelName() against their request.
		base = NewStaticEmbedder()
	}
	return NewCachedEmbedder(base, cacheSize), nil
}
