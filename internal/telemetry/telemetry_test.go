package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/config"
	"github.com/replicante-io/replicore/internal/telemetry"
)

func TestNewLoggerDefaultsToInfoLevel(t *testing.T) {
	log, err := telemetry.NewLogger(config.LoggingConfig{Mode: "console"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewLoggerRejectsInvalidLevel(t *testing.T) {
	_, err := telemetry.NewLogger(config.LoggingConfig{Level: "not-a-level"})
	require.Error(t, err)
}

func TestInitTracingDisabledInstallsNoopProvider(t *testing.T) {
	shutdown, err := telemetry.InitTracing(context.Background(), config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
