package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher sends the recorder's metrics to a Prometheus Pushgateway. The daemon
// has no listening socket, so pushing is the only way metrics leave it.
type Pusher struct {
	pusher *push.Pusher
}

func NewPusher(url, job string, rec *Recorder) *Pusher {
	return &Pusher{
		pusher: push.New(url, job).Gatherer(rec.Registry()),
	}
}

func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
