package otel

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{name: "always_on", want: trace.AlwaysSample().Description()},
		{name: "always_off", want: trace.NeverSample().Description()},
		{name: "traceidratio", arg: "0.5", want: trace.TraceIDRatioBased(0.5).Description()},
		{name: "traceidratio", arg: "nope", want: trace.TraceIDRatioBased(1).Description()},
		{name: "parentbased_traceidratio", arg: "0.25", want: trace.ParentBased(trace.TraceIDRatioBased(0.25)).Description()},
		{name: "unknown", want: trace.ParentBased(trace.AlwaysSample()).Description()},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, sampler(tt.name, tt.arg).Description())
		})
	}
}

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")

	shutdown, err := Init(context.Background(), "docarchive", slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnsupportedProtocolDegrades(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")

	shutdown, err := Init(context.Background(), "docarchive", slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
