package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// check is one named probe; a nil error means healthy.
type check struct {
	name string
	fn   func(context.Context) error
}

// CheckResult is the outcome of one probe as reported by the endpoints.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// prober runs its checks concurrently, each under timeout. A failing check
// is reported only once it has failed threshold times in a row.
type prober struct {
	checks    []check
	timeout   time.Duration
	threshold int
	log       logger.Logger

	mu       sync.Mutex
	failures map[string]int
}

func newProber(timeout time.Duration, threshold int, log logger.Logger) *prober {
	return &prober{
		timeout:   timeout,
		threshold: threshold,
		log:       log,
		failures:  make(map[string]int),
	}
}

func (p *prober) add(name string, fn func(context.Context) error) {
	p.checks = append(p.checks, check{name: name, fn: fn})
}

// run executes every check and returns an error naming the unhealthy ones.
func (p *prober) run(ctx context.Context) ([]CheckResult, error) {
	results := make([]CheckResult, len(p.checks))

	var wg sync.WaitGroup
	for i, c := range p.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.runOne(ctx, c)
		}()
	}
	wg.Wait()

	var failed []string
	for _, r := range results {
		if !r.Healthy {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("health checks failed: %s", strings.Join(failed, ", "))
	}
	return results, nil
}

func (p *prober) runOne(parent context.Context, c check) CheckResult {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	start := time.Now()
	err := c.fn(ctx)
	latency := time.Since(start)

	result := CheckResult{Name: c.name, Healthy: true, Latency: latency.String()}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		p.failures[c.name] = 0
		return result
	}

	p.failures[c.name]++
	failures := p.failures[c.name]
	fields := []logger.LogField{
		logger.StringField("check", c.name),
		logger.ErrorField(err),
		logger.IntField("failures", failures),
		logger.DurationField("latency", latency),
	}
	if failures < p.threshold {
		p.log.Debug("Health check failed below threshold", fields...)
		return result
	}

	p.log.Warn("Health check failed", fields...)
	result.Healthy = false
	result.Error = err.Error()
	return result
}

// redisPing checks a redis memory backend answers PING.
func redisPing(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}
}

// httpReachable fails when url cannot be reached or answers 5xx. Any other
// status, including 401 from an API root without a key, counts as up.
func httpReachable(client *http.Client, url string) func(context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
		}
		return nil
	}
}
