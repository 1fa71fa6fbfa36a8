package fetcher

type Config struct {
	// MaxConcurrency bounds FetchAll. Zero means 4.
	MaxConcurrency int

	// MaxBodyBytes rejects larger sources. Zero means no limit.
	MaxBodyBytes int64
}
