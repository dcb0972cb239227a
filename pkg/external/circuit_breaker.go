package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/monitoring"
)

// maxBodyBytes caps how much of an NCBI response is read.
const maxBodyBytes = 16 << 20

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests uint32        `json:"max_requests"`
	Interval    time.Duration `json:"interval"`
	Timeout     time.Duration `json:"timeout"`
	MinRequests uint32        `json:"min_requests"`
	// FailureRatio trips the breaker once at least MinRequests were made.
	FailureRatio float64 `json:"failure_ratio"`
}

// DefaultCircuitBreakerConfig is used by every NCBI client.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests:  5,
	Interval:     30 * time.Second,
	Timeout:      60 * time.Second,
	MinRequests:  3,
	FailureRatio: 0.6,
}

func newCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
		// A cancelled caller says nothing about the service's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// resilientGetter issues rate limited GETs through a circuit breaker. Only
// transport failures and 5xx responses count against the breaker; callers
// judge 4xx responses and error payloads themselves.
type resilientGetter struct {
	service    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *monitoring.Metrics
	log        *logrus.Logger
}

func newResilientGetter(service string, timeout time.Duration, perSecond int, logger *logrus.Logger, metrics *monitoring.Metrics) *resilientGetter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if perSecond <= 0 {
		perSecond = 3 // NCBI limit without an API key
	}
	return &resilientGetter{
		service:    service,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker:    newCircuitBreaker(service, DefaultCircuitBreakerConfig, logger),
		metrics:    metrics,
		log:        logger,
	}
}

func (g *resilientGetter) get(ctx context.Context, rawURL string) (response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return response{}, fmt.Errorf("rate limit wait failed: %w", err)
	}

	started := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.roundTrip(ctx, rawURL)
	})
	g.metrics.ObserveExternal(g.service, started, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return response{}, &domain.ServiceError{
			Service:      g.service,
			Message:      "service unavailable (circuit breaker open)",
			ReproduceURL: rawURL,
		}
	}
	if err != nil {
		return response{}, err
	}
	return result.(response), nil
}

func (g *resilientGetter) roundTrip(ctx context.Context, rawURL string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", "medgen-mcp-server/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, ctx.Err()
		}
		return response{}, &domain.ServiceError{Service: g.service, Message: err.Error(), ReproduceURL: rawURL}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &domain.ServiceError{Service: g.service, Message: fmt.Sprintf("reading response: %v", err), ReproduceURL: rawURL}
	}

	g.log.WithFields(logrus.Fields{
		"service": g.service,
		"status":  resp.StatusCode,
		"bytes":   len(body),
	}).Debug("External request completed")

	out := response{status: resp.StatusCode, body: body}
	if resp.StatusCode >= 500 {
		return out, &domain.ServiceError{
			Service:      g.service,
			Message:      fmt.Sprintf("HTTP %d", resp.StatusCode),
			Body:         string(body),
			ReproduceURL: rawURL,
		}
	}
	return out, nil
}
