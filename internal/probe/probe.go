// Package probe checks whether external resources answer with HTTP 200.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// ProbesTotal counts probes by result (ok, non_ok, error).
var ProbesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autodev",
		Subsystem: "probe",
		Name:      "requests_total",
		Help:      "Total number of external URL probes by result",
	},
	[]string{"result"},
)

// Prober reports the HTTP status of a GET to url.
type Prober interface {
	Status(ctx context.Context, url string) (int, error)
}

// HTTPProber probes with net/http.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober. A non-positive timeout uses DefaultTimeout;
// a nil client uses a client that does not share http.DefaultClient state.
func NewHTTPProber(client *http.Client, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProber{client: client, timeout: timeout}
}

// Status issues GET url bounded by the prober timeout and returns the status code.
func (p *HTTPProber) Status(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		ProbesTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "autodev-probe/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		ProbesTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("probing %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusOK {
		ProbesTotal.WithLabelValues("ok").Inc()
	} else {
		ProbesTotal.WithLabelValues("non_ok").Inc()
	}
	return resp.StatusCode, nil
}
