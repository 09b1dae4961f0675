package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient gates every Complete call through a token-bucket
// limiter, shared across all workers using this client so a parallel
// scheduler can't exceed the provider's request rate regardless of worker
// count. Grounded on adrianmusante-subtitle-tools' newLimiter/translate.go
// worker pool, generalized from a package-level limiter into a decorator
// any Client can be wrapped in.
type RateLimitedClient struct {
	Client
	limiter           *rate.Limiter
	requestsPerSecond float64
}

// RateLimited is implemented by any Client that enforces its own
// per-request throughput cap, letting callers (the scheduler) detect a
// rate-limited client without a type switch on the concrete type.
type RateLimited interface {
	RequestsPerSecond() float64
}

// RequestsPerSecond returns the configured sustained rate, or 0 if the
// wrapper was constructed with limiting disabled.
func (c *RateLimitedClient) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

// NewRateLimited wraps client with a limiter allowing requestsPerSecond
// sustained throughput and a burst of 1, so a batch of parallel workers
// can never fire a burst of requests ahead of the sustained rate.
// requestsPerSecond <= 0 disables limiting (the wrapper becomes a
// passthrough).
func NewRateLimited(client Client, requestsPerSecond float64) *RateLimitedClient {
	if requestsPerSecond <= 0 {
		return &RateLimitedClient{Client: client, limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimitedClient{
		Client:            client,
		limiter:           rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		requestsPerSecond: requestsPerSecond,
	}
}

func (c *RateLimitedClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, err
	}
	return c.Client.Complete(ctx, req)
}
