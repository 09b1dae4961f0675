package llm

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mgpai22/subtrans/internal/llmerr"
)

// RetryOptions configures the jittered exponential backoff used around a
// single provider call, ported from adrianmusante-subtitle-tools'
// retry.go. The batch translator's own Pending -> Retrying(k) state
// machine governs *how many times* a batch is resubmitted; this is the
// lower-level backoff applied around one HTTP round trip within a single
// attempt.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

var jitterMu sync.Mutex
var jitterRng = rand.New(rand.NewSource(time.Now().UnixNano()))

func jitterFloat64() float64 {
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return jitterRng.Float64()
}

func computeBackoff(attempt int, o RetryOptions) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 10 * time.Second
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	}
	if o.Jitter > 1 {
		o.Jitter = 1
	}

	d := time.Duration(float64(o.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	if d < 0 {
		d = 0
	}

	if o.Jitter > 0 {
		j := (jitterFloat64()*2 - 1) * o.Jitter
		d = time.Duration(float64(d) * (1 + j))
		if d < 0 {
			d = 0
		}
		if d > o.MaxDelay {
			d = o.MaxDelay
		}
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CompleteWithRetry calls client.Complete, retrying transient provider
// errors (network failure, 5xx, 429) with jittered exponential backoff.
// Parse/Fatal/Misaligned/Aborted errors are returned immediately: retrying
// those is the batch translator's job, not this layer's.
func CompleteWithRetry(ctx context.Context, client Client, req Request, o RetryOptions, log *zap.SugaredLogger) (Response, error) {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}

		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		kind, _ := llmerr.KindOf(err)
		if kind != llmerr.KindTransient || attempt >= o.MaxAttempts {
			return Response{}, err
		}

		delay := computeBackoff(attempt, o)
		if log != nil {
			log.Warnw("retrying provider request after transient error",
				"provider", client.Provider(), "attempt", attempt, "delay", delay, "error", err)
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return Response{}, err
		}
	}

	return Response{}, lastErr
}
