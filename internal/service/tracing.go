package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const tracerName = "github.com/noah-isme/sma-incentive-api/internal/service"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan records the outcome and error before ending the span.
func finishSpan(span trace.Span, outcome models.Outcome, err error) {
	if outcome != "" {
		span.SetAttributes(attribute.String("incentive.outcome", string(outcome)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
