package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// defaultProbeWindow bounds how many recent probe outcomes feed the rolling
// error rate.
const defaultProbeWindow = 20

// HTTPProber checks the external payment API by hitting its status endpoint.
// It keeps a rolling window of recent outcomes so a single blip does not read
// as a 100% error rate. Implements APIProber.
type HTTPProber struct {
	url    string
	client *http.Client

	mu       sync.Mutex
	outcomes []bool // true = success, ring of the last probes
	next     int
	filled   bool
}

// ProberOption configures the HTTP prober.
type ProberOption func(*HTTPProber)

// WithHTTPClient overrides the HTTP client, e.g. for tests or custom TLS.
func WithHTTPClient(client *http.Client) ProberOption {
	return func(p *HTTPProber) {
		if client != nil {
			p.client = client
		}
	}
}

// WithProbeWindow sets how many recent probes feed the rolling error rate.
func WithProbeWindow(n int) ProberOption {
	return func(p *HTTPProber) {
		if n > 0 {
			p.outcomes = make([]bool, n)
		}
	}
}

// NewHTTPProber creates a prober for the payment API status URL.
// Panics on an empty URL to fail fast during initialization.
func NewHTTPProber(url string, opts ...ProberOption) *HTTPProber {
	if url == "" {
		panic("health: probe URL is required")
	}
	p := &HTTPProber{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		outcomes: make([]bool, defaultProbeWindow),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe performs one reachability check. Transport failures return an error;
// an HTTP 5xx counts as reachable-but-failing and lowers the rolling success
// rate instead.
func (p *HTTPProber) Probe(ctx context.Context) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("health: build probe request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		p.observe(false)
		return ProbeResult{}, fmt.Errorf("health: payment API probe: %w", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode < http.StatusInternalServerError
	p.observe(ok)

	return ProbeResult{
		Reachable: true,
		ErrorRate: p.errorRate(),
		Latency:   latency,
	}, nil
}

func (p *HTTPProber) observe(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[p.next] = ok
	p.next++
	if p.next == len(p.outcomes) {
		p.next = 0
		p.filled = true
	}
}

func (p *HTTPProber) errorRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.outcomes)
	if !p.filled {
		n = p.next
	}
	if n == 0 {
		return 0
	}
	var failures int
	for i := 0; i < n; i++ {
		if !p.outcomes[i] {
			failures++
		}
	}
	return float64(failures) / float64(n) * 100
}
