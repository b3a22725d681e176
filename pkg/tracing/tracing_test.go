package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/pkg/config"
)

func TestInitDisabledReturnsNoop(t *testing.T) {
	shutdown := Init(context.Background(), config.TracingConfig{Enabled: false}, "test", nil)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitStdoutExporter(t *testing.T) {
	shutdown := Init(context.Background(), config.TracingConfig{Enabled: true, ServiceName: "test", SampleRatio: 1}, "test", nil)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
