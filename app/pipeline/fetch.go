package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/dtube-pinner/app/metrics"
	"github.com/lysyi3m/dtube-pinner/app/steem"
)

type fetchResult struct {
	feed  string
	posts []steem.Post
	err   error
}

// fetchStage dispatches one request per name, at most ConcurrentRequests at a
// time across all running cycles, and streams results in completion order. A
// slot is held until the result has been taken by the consumer, so a slow
// consumer holds back further requests. The channel is closed once every
// dispatched request has delivered its result.
func (p *Pipeline) fetchStage(ctx context.Context, logger *slog.Logger, names []string) <-chan fetchResult {
	results := make(chan fetchResult)

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(results)
		}()

		for i, name := range names {
			if err := p.fetchSlots.Acquire(ctx, 1); err != nil {
				logger.Warn("Fetch stage stopped", "pending_feeds", len(names)-i, "error", err)
				return
			}

			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				defer p.fetchSlots.Release(1)

				posts, err := p.fetch(ctx, name)
				results <- fetchResult{feed: name, posts: posts, err: err}
			}(name)
		}
	}()

	return results
}

func (p *Pipeline) fetch(ctx context.Context, name string) ([]steem.Post, error) {
	p.metrics.Inflight(metrics.StageFetch, 1)
	defer p.metrics.Inflight(metrics.StageFetch, -1)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	posts, err := p.feeds.FetchRecentPosts(fetchCtx, name, FeedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", name, err)
	}

	return posts, nil
}
