package telemetry

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// Metric names
const (
	MetricTracksChecked   = "curation.tracks.checked"
	MetricTracksRejected  = "curation.tracks.rejected"
	MetricTracksAccepted  = "curation.tracks.accepted"
	MetricFeaturesDone    = "extraction.tracks.done"
	MetricFeaturesFailed  = "extraction.tracks.failed"
	MetricFeatureCacheHit = "extraction.cache.hit"
	MetricTrainAccuracy   = "training.accuracy"
	MetricTrainRows       = "training.rows"
	MetricStageDuration   = "stage.duration"
	MetricPredictions     = "prediction.count"
	MetricPredictFailures = "prediction.failures"
	MetricPredictLatency  = "prediction.latency"
)

// Client sends pipeline metrics to StatsD. Send failures are logged and
// otherwise ignored.
type Client struct {
	statsd statsd.ClientInterface
	logger logging.Logger
}

// New creates a client for cfg. An empty address yields a client that
// discards every metric.
func New(cfg configs.TelemetryConfig) (*Client, error) {
	if cfg.StatsdAddress == "" {
		return NewWithClient(&statsd.NoOpClient{}), nil
	}

	sd, err := statsd.New(cfg.StatsdAddress,
		statsd.WithNamespace(cfg.Namespace),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client for %s: %w", cfg.StatsdAddress, err)
	}

	c := NewWithClient(sd)
	c.logger.Debug("StatsD client created", logging.Fields{
		"address":   cfg.StatsdAddress,
		"namespace": cfg.Namespace,
	})
	return c, nil
}

// NewWithClient wraps an existing StatsD client
func NewWithClient(sd statsd.ClientInterface) *Client {
	return &Client{
		statsd: sd,
		logger: logging.WithFields(logging.Fields{
			"component": "telemetry",
		}),
	}
}

// NewNop returns a client that discards every metric
func NewNop() *Client {
	return NewWithClient(&statsd.NoOpClient{})
}

// Count adds value to a counter
func (c *Client) Count(name string, value int64, tags ...string) {
	c.report(name, c.statsd.Count(name, value, tags, 1))
}

// Gauge records the current value of name
func (c *Client) Gauge(name string, value float64, tags ...string) {
	c.report(name, c.statsd.Gauge(name, value, tags, 1))
}

// Timing records a duration
func (c *Client) Timing(name string, d time.Duration, tags ...string) {
	c.report(name, c.statsd.Timing(name, d, tags, 1))
}

// Stage returns a function that records the elapsed time of a pipeline stage
func (c *Client) Stage(stage string) func() {
	start := time.Now()
	return func() {
		c.Timing(MetricStageDuration, time.Since(start), "stage:"+stage)
	}
}

// Close flushes and closes the underlying client
func (c *Client) Close() error {
	return c.statsd.Close()
}

func (c *Client) report(name string, err error) {
	if err != nil {
		c.logger.Debug("Failed to send metric", logging.Fields{
			"metric": name,
			"error":  err.Error(),
		})
	}
}
