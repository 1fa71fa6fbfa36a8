package webclient

import "time"

type Client string

const (
	ClientNetHTTP  Client = "nethttp"
	ClientChromedp Client = "chromedp"
)

// DefaultAccept prefers Markdown and plain text sources.
const DefaultAccept = "text/markdown, text/plain;q=0.9, */*;q=0.1"

// Config is the set of options needed for constructing a WebClient.
// It is embedded by app.Config without creating an import cycle.
type Config struct {
	Client Client

	// Timeout bounds a single request. Zero means 30s.
	Timeout time.Duration

	// UserAgent is sent on every request when set.
	UserAgent string

	// IdleAfter is how long the chromedp backend waits for network quiet.
	IdleAfter time.Duration

	// Headless controls the chromedp browser; nil means headless.
	Headless *bool
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func (c Config) idleAfter() time.Duration {
	if c.IdleAfter <= 0 {
		return 2 * time.Second
	}
	return c.IdleAfter
}
