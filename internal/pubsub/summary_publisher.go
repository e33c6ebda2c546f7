package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoscale_summary_publish_total",
			Help: "Total number of run summaries published to streams",
		},
		[]string{"stream", "kind"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoscale_summary_publish_errors_total",
			Help: "Total number of run summaries that could not be published",
		},
		[]string{"stream", "kind"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoscale_summary_publish_latency_seconds",
			Help:    "Publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"stream"},
	)
)

// SummaryPublisherConfig holds configuration for the summary publisher
type SummaryPublisherConfig struct {
	StreamName    string
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultSummaryPublisherConfig returns default configuration
func DefaultSummaryPublisherConfig(streamName string) SummaryPublisherConfig {
	return SummaryPublisherConfig{
		StreamName:    streamName,
		RetryAttempts: 3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// SummaryPublisher publishes batch run summaries to a Redis stream.
// Each summary is one stream entry whose single field is the run kind.
type SummaryPublisher struct {
	config SummaryPublisherConfig
	redis  storage.RedisClient
}

// NewSummaryPublisher creates a new summary publisher
func NewSummaryPublisher(redis storage.RedisClient, config SummaryPublisherConfig) *SummaryPublisher {
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	return &SummaryPublisher{
		config: config,
		redis:  redis,
	}
}

// Publish writes a summary to the stream, retrying with a linear backoff
func (p *SummaryPublisher) Publish(ctx context.Context, kind string, summary interface{}) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}

	startTime := time.Now()

	var err error
retry:
	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		err = p.redis.PublishToStream(ctx, p.config.StreamName, kind, summary)
		if err == nil {
			break
		}

		if attempt < p.config.RetryAttempts-1 {
			logger.Warn("Failed to publish run summary, retrying",
				logger.ErrorField(err),
				logger.String("stream", p.config.StreamName),
				logger.String("kind", kind),
				logger.Int("attempt", attempt+1),
			)
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break retry
			case <-time.After(p.config.RetryDelay * time.Duration(attempt+1)):
			}
		}
	}

	if err != nil {
		publishErrors.WithLabelValues(p.config.StreamName, kind).Inc()
		logger.Error("Failed to publish run summary after retries",
			logger.ErrorField(err),
			logger.String("stream", p.config.StreamName),
			logger.String("kind", kind),
		)
		return err
	}

	publishTotal.WithLabelValues(p.config.StreamName, kind).Inc()
	publishLatency.WithLabelValues(p.config.StreamName).Observe(time.Since(startTime).Seconds())

	logger.Debug("Published run summary",
		logger.String("stream", p.config.StreamName),
		logger.String("kind", kind),
		logger.Duration("latency", time.Since(startTime)),
	)

	return nil
}

// StreamName returns the stream summaries are written to
func (p *SummaryPublisher) StreamName() string {
	return p.config.StreamName
}
