package telemetry

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, parent := tp.Tracer("test").Start(context.Background(), "publish")
	attrs := InjectTraceContext(ctx)
	parent.End()

	if _, ok := attrs["traceparent"]; !ok {
		t.Fatalf("expected traceparent attribute, got %v", attrs)
	}

	msg := types.Message{
		MessageId:         aws.String("m-1"),
		Body:              aws.String(`{"userId":"42","kind":"clock-in"}`),
		MessageAttributes: attrs,
	}
	ctx, span := StartSpanFromSQSMessage(context.Background(), msg)
	defer span.End()

	if got := GetUserIDFromContext(ctx); got != "42" {
		t.Errorf("expected user id 42, got %q", got)
	}
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer("test", "", false)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestCarrierKeys(t *testing.T) {
	c := sqsCarrier{attrs: map[string]types.MessageAttributeValue{}}
	c.Set("a", "1")
	c.Set("b", "2")
	if len(c.Keys()) != 2 || c.Get("a") != "1" || c.Get("missing") != "" {
		t.Errorf("unexpected carrier state %v", c.attrs)
	}
}
