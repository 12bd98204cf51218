package pipeline

import (
	"context"
	"log/slog"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/lysyi3m/dtube-pinner/app/metrics"
)

func newPinExecutor(opts Options) failsafe.Executor[any] {
	policy := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return err != nil && opts.ShouldRetry(err)
		}).
		WithMaxRetries(opts.PinRetries).
		WithBackoff(opts.RetryDelay, opts.RetryMaxDelay).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()

	return failsafe.With[any](policy)
}

// pin requests recursive retention of hash. Every attempt gets its own
// PinTimeout.
func (p *Pipeline) pin(ctx context.Context, logger *slog.Logger, hash string) error {
	p.metrics.Inflight(metrics.StagePin, 1)
	defer p.metrics.Inflight(metrics.StagePin, -1)

	attempt := 0
	err := p.pinPolicy.WithContext(ctx).Run(func() error {
		attempt++
		if attempt > 1 {
			logger.Debug("Retrying pin", "hash", hash, "attempt", attempt)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.opts.PinTimeout)
		defer cancel()

		return p.pins.Pin(attemptCtx, hash, true)
	})

	p.metrics.Pin(err)

	return err
}
