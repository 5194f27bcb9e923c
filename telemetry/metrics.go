// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommentsPosted     prometheus.Counter
	CommentsLiked      prometheus.Counter
	CommentFetches     prometheus.Counter
	CommentFetchErrors prometheus.Counter
	ChannelLookups     prometheus.Counter
	ChannelCacheHits   prometheus.Counter

	// Histograms (seconds)
	CommentFetchDuration prometheus.Observer
	IVSCallDuration      prometheus.Observer

	// Gauges
	CommentFeedClients prometheus.Gauge // connected SSE+WebSocket feed clients
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommentsPosted = promauto.NewCounter(prometheus.CounterOpts{Name: "lounge_comments_posted_total", Help: "Number of comments posted"})
		CommentsLiked = promauto.NewCounter(prometheus.CounterOpts{Name: "lounge_comments_liked_total", Help: "Number of comment likes applied"})
		CommentFetches = promauto.NewCounter(prometheus.CounterOpts{Name: "lounge_comment_fetches_total", Help: "Number of comment store fetches"})
		CommentFetchErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "lounge_comment_fetch_errors_total", Help: "Number of failed comment store fetches"})
		ChannelLookups = promauto.NewCounter(prometheus.CounterOpts{Name: "lounge_channel_lookups_total", Help: "Number of IVS channel lookups"})
		ChannelCacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "lounge_channel_cache_hits_total", Help: "Number of channel lookups served from cache"})
		CommentFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "lounge_comment_fetch_duration_seconds", Help: "Comment store fetch duration seconds", Buckets: prometheus.DefBuckets})
		IVSCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "lounge_ivs_call_duration_seconds", Help: "IVS API call duration seconds", Buckets: prometheus.DefBuckets})
		CommentFeedClients = promauto.NewGauge(prometheus.GaugeOpts{Name: "lounge_comment_feed_clients", Help: "Currently connected live comment feed clients"})
	})
}

// IncCommentsPosted records one posted comment.
func IncCommentsPosted() {
	if CommentsPosted != nil {
		CommentsPosted.Inc()
	}
}

// IncCommentsLiked records one applied like.
func IncCommentsLiked() {
	if CommentsLiked != nil {
		CommentsLiked.Inc()
	}
}

// ObserveCommentFetch records the duration and outcome of one store fetch.
func ObserveCommentFetch(d time.Duration, ok bool) {
	if CommentFetches != nil {
		CommentFetches.Inc()
	}
	if !ok && CommentFetchErrors != nil {
		CommentFetchErrors.Inc()
	}
	if CommentFetchDuration != nil {
		CommentFetchDuration.Observe(d.Seconds())
	}
}

// ObserveIVSCall records the duration of one IVS API call, counting cache
// hits separately.
func ObserveIVSCall(d time.Duration, cached bool) {
	if ChannelLookups != nil {
		ChannelLookups.Inc()
	}
	if cached && ChannelCacheHits != nil {
		ChannelCacheHits.Inc()
	}
	if IVSCallDuration != nil {
		IVSCallDuration.Observe(d.Seconds())
	}
}

// AddFeedClients adjusts the connected live feed client gauge.
func AddFeedClients(delta int) {
	if CommentFeedClients != nil {
		CommentFeedClients.Add(float64(delta))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
