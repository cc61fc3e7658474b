package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	// the exporter connects lazily, so no collector is needed here
	shutdown, err := Init(context.Background(), Config{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4318",
		ServiceName: "ragone-test",
		SampleRatio: 1,
	})
	require.NoError(t, err)
	assert.NotNil(t, shutdown)
}
