package telemetry

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_ExportsSpans(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := InitTracer("rag-console-test", &out, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "ExecuteStage")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), "ExecuteStage")
	assert.Contains(t, out.String(), "rag-console-test")
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop(context.Background()))
}
