package llm

import (
	"context"

	"golang.org/x/time/rate"
)

type throttledProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithThrottle caps outbound calls to rps requests per second across the
// process. A non-positive rps disables throttling.
func WithThrottle(p Provider, rps float64) Provider {
	if rps <= 0 {
		return p
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &throttledProvider{inner: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *throttledProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &ErrProviderUnavailable{Err: err}
	}
	return t.inner.Generate(ctx, req)
}

func (t *throttledProvider) ModelID() string { return t.inner.ModelID() }
