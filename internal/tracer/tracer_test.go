package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"attrconsent/internal/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanEvaluate, tracer.String("key", "value"))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool("flag", true))
	span.AddEvent("test.event", tracer.Int64("count", 42))
	span.End(errors.New("ignored"))
}

func TestOTelTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := tracer.NewOTel(tracer.WithOTelTracer(provider.Tracer("test")))

	_, span := tr.Start(context.Background(), tracer.SpanStore,
		tracer.String(tracer.AttrService, "svc-a"),
		tracer.Int64("reminder", 14),
		tracer.Duration("elapsed", 150*time.Millisecond),
		tracer.Attribute{Key: "dropped", Value: struct{}{}},
	)
	span.SetAttributes(tracer.Bool(tracer.AttrRequired, true))
	span.AddEvent(tracer.EventAuditEmitted, tracer.String("action", "consent_stored"))
	span.End(errors.New("storage down"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, tracer.SpanStore, got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "storage down", got.Status().Description)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "svc-a", attrs[tracer.AttrService].AsString())
	assert.Equal(t, int64(14), attrs["reminder"].AsInt64())
	assert.Equal(t, int64(150), attrs["elapsed"].AsInt64())
	assert.True(t, attrs[tracer.AttrRequired].AsBool())
	assert.NotContains(t, attrs, attribute.Key("dropped"))

	var names []string
	for _, ev := range got.Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, tracer.EventAuditEmitted)
}

func TestOTelTracer_SuccessfulSpanIsUnset(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := tracer.NewOTel(tracer.WithOTelTracer(provider.Tracer("test")))

	_, span := tr.Start(context.Background(), tracer.SpanDelete)
	span.End(nil)

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}

func TestHashPrincipal(t *testing.T) {
	assert.Empty(t, tracer.HashPrincipal(""))
	assert.Len(t, tracer.HashPrincipal("casuser"), 16)
	assert.Equal(t, tracer.HashPrincipal("casuser"), tracer.HashPrincipal("casuser"))
	assert.NotEqual(t, tracer.HashPrincipal("casuser"), tracer.HashPrincipal("casuser2"))
}
