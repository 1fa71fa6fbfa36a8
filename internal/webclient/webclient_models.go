package webclient

import (
	"net/http"
	"time"
)

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	// Options contains backend-specific options like "extract": "html" for chromedp
	Options map[string]string
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// ContentType returns the response Content-Type header, if any.
func (r *Response) ContentType() string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}
