package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
)

// FrontendMonitor tracks the web application. Its probe fetches the app root
// and, when configured, dials the dev server's HMR websocket. An unreachable
// app is a probe error; a reachable app with a dead HMR socket is reported
// unhealthy but the probe itself succeeds.
type FrontendMonitor struct {
	*tracker
	probe probeFunc
}

// NewFrontendMonitor builds the frontend monitor.
func NewFrontendMonitor(cfg config.MonitorsConfig, client *http.Client, log *logger.Logger) *FrontendMonitor {
	m := &FrontendMonitor{
		tracker: newTracker(
			v1.AgentFrontend,
			[]v1.AgentID{v1.AgentBackend, v1.AgentAIML},
			v1.BlockerTechnical,
			cfg,
			log,
		),
		probe: probeAlwaysHealthy,
	}

	baseURL := cfg.Frontend.BaseURL
	hmrURL := cfg.Frontend.HMRURL
	if baseURL == "" && hmrURL == "" {
		return m
	}

	handshakeTimeout := cfg.ProbeTimeoutDuration()
	m.probe = guardProbe(func(ctx context.Context) probeResult {
		var res probeResult
		if baseURL != "" {
			res = httpGet(ctx, client, baseURL)
			if res.err != nil || !res.healthy {
				return res
			}
		} else {
			res = probeResult{healthy: true}
		}

		if hmrURL != "" {
			if err := dialHMR(ctx, hmrURL, handshakeTimeout); err != nil {
				return probeResult{
					latency: res.latency,
					detail:  fmt.Sprintf("HMR socket %s unreachable: %v", hmrURL, err),
				}
			}
		}
		return res
	})
	return m
}

// CheckStatus probes the web app and advances tracked work.
func (m *FrontendMonitor) CheckStatus(ctx context.Context) (v1.AgentStatus, error) {
	return m.observe(m.probe(ctx)), nil
}

// dialHMR opens and immediately closes a websocket connection to the dev
// server's hot-module-reload endpoint.
func dialHMR(ctx context.Context, url string, handshakeTimeout time.Duration) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}
	return conn.Close()
}
