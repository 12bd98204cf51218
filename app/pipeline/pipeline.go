package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/dtube-pinner/app/dtube"
	"github.com/lysyi3m/dtube-pinner/app/ipfs"
	"github.com/lysyi3m/dtube-pinner/app/metrics"
	"github.com/lysyi3m/dtube-pinner/app/steem"
)

// FeedLimit is how many of the most recent posts are requested per feed.
const FeedLimit = 100

// FeedClient fetches the latest posts of a named feed. Implementations must be
// safe for concurrent use.
type FeedClient interface {
	FetchRecentPosts(ctx context.Context, feedName string, limit int) ([]steem.Post, error)
}

// PinClient asks the storage network to retain a hash. Implementations must be
// safe for concurrent use.
type PinClient interface {
	Pin(ctx context.Context, hash string, recursive bool) error
}

type Options struct {
	ConcurrentRequests int
	ConcurrentPins     int
	FetchTimeout       time.Duration
	PinTimeout         time.Duration
	// FeedRateLimit caps feed requests per second across all cycles. Zero disables it.
	FeedRateLimit float64
	// PinRetries is the number of extra attempts for pins failing with a
	// retryable error. Pins are idempotent, so retrying is always safe.
	PinRetries    int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
	ShouldRetry   func(error) bool
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
}

// Pipeline runs fetch, extract and pin cycles. The fetch and pin pools are
// owned by the pipeline, so cycles running at the same time share them.
type Pipeline struct {
	feeds     FeedClient
	pins      PinClient
	extractor *dtube.Extractor
	opts      Options

	fetchSlots *semaphore.Weighted
	pinSlots   *semaphore.Weighted
	limiter    *rate.Limiter
	pinPolicy  failsafe.Executor[any]
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// CycleStats summarises one cycle.
type CycleStats struct {
	Feeds        int
	FeedErrors   int
	Posts        int
	Tracked      int
	SchemaErrors int
	Hashes       int
	Pinned       int
	PinErrors    int
	PinsSkipped  int
	Duration     time.Duration
}

func New(feeds FeedClient, pins PinClient, extractor *dtube.Extractor, opts Options) *Pipeline {
	if opts.ConcurrentRequests < 1 {
		opts.ConcurrentRequests = 1
	}
	if opts.ConcurrentPins < 1 {
		opts.ConcurrentPins = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.PinTimeout <= 0 {
		opts.PinTimeout = 5 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.RetryMaxDelay <= opts.RetryDelay {
		opts.RetryMaxDelay = 30 * time.Second
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = ipfs.IsTransient
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.FeedRateLimit > 0 {
		limit = rate.Limit(opts.FeedRateLimit)
	}

	return &Pipeline{
		feeds:      feeds,
		pins:       pins,
		extractor:  extractor,
		opts:       opts,
		fetchSlots: semaphore.NewWeighted(int64(opts.ConcurrentRequests)),
		pinSlots:   semaphore.NewWeighted(int64(opts.ConcurrentPins)),
		limiter:    rate.NewLimiter(limit, 1),
		pinPolicy:  newPinExecutor(opts),
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// RunCycle fetches every feed in names, extracts hashes from the tracked posts
// and pins them. Per-item failures are logged and counted, never returned. It
// returns once every fetch and pin it started has finished.
func (p *Pipeline) RunCycle(ctx context.Context, cycleID string, names []string) CycleStats {
	start := time.Now()
	logger := p.logger.With("cycle_id", cycleID)

	var (
		stats     CycleStats
		pinned    atomic.Int64
		pinErrors atomic.Int64
		pinsWg    sync.WaitGroup
	)

	for res := range p.fetchStage(ctx, logger, names) {
		stats.Feeds++
		p.metrics.Fetch(res.err)

		if res.err != nil {
			stats.FeedErrors++
			logger.Error("Feed fetch failed", "feed", res.feed, "error", res.err)
			continue
		}

		logger.Debug("Feed fetched", "feed", res.feed, "posts", len(res.posts))

		extractor := p.extractor.WithLogger(logger.With("feed", res.feed))

		for _, post := range res.posts {
			stats.Posts++

			hashes, result := extractor.Extract(post)
			p.metrics.Post(string(result))

			switch result {
			case dtube.ResultTracked:
				stats.Tracked++
			case dtube.ResultSchemaError:
				stats.SchemaErrors++
			}

			for _, hash := range hashes {
				stats.Hashes++

				// Blocks while the pin pool is full, which in turn stops this
				// loop from taking further fetch results.
				if err := p.pinSlots.Acquire(ctx, 1); err != nil {
					stats.PinsSkipped++
					logger.Debug("Pin not dispatched", "feed", res.feed, "hash", hash, "error", err)
					continue
				}

				pinsWg.Add(1)
				go func(feed, hash string) {
					defer pinsWg.Done()
					defer p.pinSlots.Release(1)

					if err := p.pin(ctx, logger, hash); err != nil {
						pinErrors.Add(1)
						logger.Warn("Pin failed", "feed", feed, "hash", hash, "error", err)
						return
					}
					pinned.Add(1)
					logger.Debug("Pinned", "feed", feed, "hash", hash)
				}(res.feed, hash)
			}
		}
	}

	pinsWg.Wait()

	stats.Pinned = int(pinned.Load())
	stats.PinErrors = int(pinErrors.Load())
	stats.Duration = time.Since(start)

	p.metrics.CycleDone(stats.Duration)

	return stats
}
