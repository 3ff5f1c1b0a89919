package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// probeResult is the outcome of one domain inspection.
//
// healthy=false with err=nil is a clean negative: the domain answered and
// reported trouble (failing tests, 5xx health endpoint). err!=nil means the
// inspection itself broke (unreachable endpoint, timeout, recovered panic)
// and the row surfaces as ERROR for that check.
type probeResult struct {
	healthy bool
	latency time.Duration
	detail  string
	err     error
}

// probeFunc inspects a domain and reports its condition. Implementations
// must honor ctx cancellation and must not panic.
type probeFunc func(ctx context.Context) probeResult

// probeAlwaysHealthy is used when a monitor has no endpoint configured and
// runs in tracking-only mode.
func probeAlwaysHealthy(ctx context.Context) probeResult {
	return probeResult{healthy: true}
}

// httpGet performs a single GET and classifies the response. Any 2xx status
// is healthy, other statuses are clean negatives, transport errors are probe
// errors.
func httpGet(ctx context.Context, client *http.Client, url string) probeResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return probeResult{err: fmt.Errorf("build request for %s: %w", url, err)}
	}

	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return probeResult{latency: latency, err: fmt.Errorf("probe %s: %w", url, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return probeResult{
			latency: latency,
			detail:  fmt.Sprintf("%s returned status %d", url, resp.StatusCode),
		}
	}
	return probeResult{healthy: true, latency: latency}
}

// guardProbe wraps a probeFunc so a panic inside the probe is converted to
// a probe error instead of taking down the status sweep.
func guardProbe(probe probeFunc) probeFunc {
	return func(ctx context.Context) (res probeResult) {
		defer func() {
			if r := recover(); r != nil {
				res = probeResult{err: fmt.Errorf("probe panicked: %v", r)}
			}
		}()
		return probe(ctx)
	}
}
