package corrector

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Settings configure the transport shared by all clients of a Pool.
type Settings struct {
	RatePerSec      float64
	Burst           int
	BreakerFailures uint32
	BreakerCooldown time.Duration
	HTTPTimeout     time.Duration
	StatsWindow     time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		RatePerSec:      2,
		Burst:           4,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		HTTPTimeout:     120 * time.Second,
		StatsWindow:     time.Hour,
	}
}

type endpointState struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// Pool hands out Clients. Clients on the same endpoint share one circuit
// breaker and one rate limiter, so a failing provider trips for every caller.
type Pool struct {
	settings   Settings
	log        *slog.Logger
	httpClient *http.Client
	stats      *Stats

	mu        sync.Mutex
	endpoints map[string]*endpointState
}

func NewPool(s Settings, log *slog.Logger) *Pool {
	d := DefaultSettings()
	if s.RatePerSec <= 0 {
		s.RatePerSec = d.RatePerSec
	}
	if s.Burst <= 0 {
		s.Burst = d.Burst
	}
	if s.BreakerFailures == 0 {
		s.BreakerFailures = d.BreakerFailures
	}
	if s.BreakerCooldown <= 0 {
		s.BreakerCooldown = d.BreakerCooldown
	}
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = d.HTTPTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		settings:   s,
		log:        log,
		httpClient: &http.Client{Timeout: s.HTTPTimeout},
		stats:      NewStats(s.StatsWindow),
		endpoints:  make(map[string]*endpointState),
	}
}

// Client returns a Client for the given API base, key and model.
func (p *Pool) Client(apiBase, apiKey, model string) *Client {
	endpoint := Endpoint(apiBase)
	st := p.endpoint(endpoint)
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: p.httpClient,
		breaker:    st.breaker,
		limiter:    st.limiter,
		stats:      p.stats,
	}
}

func (p *Pool) endpoint(endpoint string) *endpointState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.endpoints[endpoint]; ok {
		return st
	}
	st := &endpointState{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        endpoint,
			MaxRequests: 1,
			Timeout:     p.settings.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= p.settings.BreakerFailures
			},
			IsSuccessful: endpointHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				p.log.Warn("corrector circuit breaker state change",
					"endpoint", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(p.settings.RatePerSec), p.settings.Burst),
	}
	p.endpoints[endpoint] = st
	return st
}

// endpointHealthy treats request-side rejections (bad key, bad model) as
// healthy so one misconfigured caller cannot open the breaker for the rest.
func endpointHealthy(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Transient()
}

// Stats returns the latency window shared by every client of the pool.
func (p *Pool) Stats() *Stats {
	return p.stats
}

// Close releases idle connections.
func (p *Pool) Close() {
	p.httpClient.CloseIdleConnections()
}
