package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), DefaultConfig(), "test", nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestProvider_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.SampleRatio = 1

	exp, err := newExporter(context.Background(), cfg, &buf)
	require.NoError(t, err)
	tp := newProvider(cfg, "v0.0.1", exp)

	_, span := tp.Tracer("test").Start(context.Background(), "adaptive.NextQuestion")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "adaptive.NextQuestion")
	assert.Contains(t, buf.String(), "quizadapt")
}

func TestClampRatio(t *testing.T) {
	tests := []struct{ in, want float64 }{{-1, 0}, {0.5, 0.5}, {3, 1}}
	for _, tt := range tests {
		if got := clampRatio(tt.in); got != tt.want {
			t.Errorf("clampRatio(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
