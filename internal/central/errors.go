package central

import "fmt"

// TransportError signals a network-level failure reaching the vendor
// API: timeout, connection refused, DNS. Never retried here.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("vendor api unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError carries a non-2xx vendor API answer with its status and
// body for diagnostics. Includes a 401 that survived the single forced
// refresh-and-retry.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("vendor api returned status %d: %s", e.Status, e.Body)
}

// RateLimitError is a vendor 429. RetryAfter holds the raw Retry-After
// header when the vendor sent one; no backoff happens in this layer.
type RateLimitError struct {
	RetryAfter string
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("vendor api rate limited, retry after %s", e.RetryAfter)
	}
	return "vendor api rate limited"
}
