package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
)

type sent struct {
	name  string
	value float64
	tags  []string
}

// recordingClient captures metrics instead of sending them
type recordingClient struct {
	*statsd.NoOpClient

	mu      sync.Mutex
	metrics []sent
}

func (r *recordingClient) record(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, sent{name: name, value: value, tags: tags})
	return nil
}

func (r *recordingClient) Count(name string, value int64, tags []string, rate float64) error {
	return r.record(name, float64(value), tags)
}

func (r *recordingClient) Gauge(name string, value float64, tags []string, rate float64) error {
	return r.record(name, value, tags)
}

func (r *recordingClient) Timing(name string, value time.Duration, tags []string, rate float64) error {
	return r.record(name, float64(value), tags)
}

func TestNewWithoutAddressDiscards(t *testing.T) {
	c, err := New(configs.TelemetryConfig{})
	require.NoError(t, err)

	c.Count(MetricTracksChecked, 3)
	c.Gauge(MetricTrainAccuracy, 0.5)
	assert.NoError(t, c.Close())
}

func TestClientForwardsMetrics(t *testing.T) {
	rec := &recordingClient{NoOpClient: &statsd.NoOpClient{}}
	c := NewWithClient(rec)

	c.Count(MetricTracksRejected, 2, "reason:silent")
	c.Gauge(MetricTrainAccuracy, 0.75)
	c.Stage("train")()

	require.Len(t, rec.metrics, 3)
	assert.Equal(t, sent{name: MetricTracksRejected, value: 2, tags: []string{"reason:silent"}}, rec.metrics[0])
	assert.Equal(t, 0.75, rec.metrics[1].value)
	assert.Equal(t, MetricStageDuration, rec.metrics[2].name)
	assert.Equal(t, []string{"stage:train"}, rec.metrics[2].tags)
}

func TestNewWithAddress(t *testing.T) {
	c, err := New(configs.TelemetryConfig{StatsdAddress: "127.0.0.1:8125", Namespace: "test."})
	require.NoError(t, err)
	c.Count(MetricPredictions, 1)
	assert.NoError(t, c.Close())
}
