package logging

import (
	"context"
	"errors"
	"testing"

	commonlog "github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithFieldsCarriesContext(t *testing.T) {
	core, observed := observer.New(zap.DebugLevel)
	logger := FromZap(zap.New(core)).WithFields(Fields{"component": "curator"})

	logger.Info("checking", Fields{"path": "/data/rock/a.wav"})
	logger.Error(errors.New("boom"), "decode failed")

	entries := observed.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "curator", first["component"])
	assert.Equal(t, "/data/rock/a.wav", first["path"])

	second := entries[1]
	assert.Equal(t, zapcore.ErrorLevel, second.Level)
	assert.Equal(t, "boom", second.ContextMap()["error"])
}

func TestWithContextReadsLoggerFields(t *testing.T) {
	core, observed := observer.New(zap.DebugLevel)
	ctx := context.WithValue(context.Background(), contextFieldsKey, Fields{"request_id": "abc"})

	FromZap(zap.New(core)).WithContext(ctx).Info("handled")

	require.Len(t, observed.All(), 1)
	assert.Equal(t, "abc", observed.All()[0].ContextMap()["request_id"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"", InfoLevel, false},
		{"loud", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "level %q", tt.in)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %q", tt.in)
	}
}

func TestConfigureInstallsGlobalLogger(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, Configure(Options{Level: "info", Format: "console", Output: "stderr"}))
	})

	require.NoError(t, Configure(Options{Level: "warn", Format: "json", Output: "stderr"}))
	_, ok := commonlog.GetGlobalLogger().(*zapLogger)
	assert.True(t, ok, "global logger should be zap backed")
	assert.Equal(t, zapcore.WarnLevel, rootLevel.Level())

	SetLevel(DebugLevel)
	assert.Equal(t, zapcore.DebugLevel, rootLevel.Level())

	WithFields(Fields{"component": "test"}).SetLevel(ErrorLevel)
	assert.Equal(t, zapcore.ErrorLevel, rootLevel.Level())
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	err := Configure(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNopLoggerIsSilent(t *testing.T) {
	logger := NewNop()
	assert.IsType(t, &commonlog.NoOpLogger{}, logger)
	assert.NotPanics(t, func() {
		logger.WithFields(Fields{"a": 1}).Warn("ignored")
		logger.Error(nil, "ignored")
	})
}
