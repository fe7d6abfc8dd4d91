package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"attendance.service/internal/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const source = "attendance-bot"

// Producer publishes audit events to a queue. It doubles as a ports.AuditLog.
type Producer struct {
	sender        MessageSender
	auditQueueURL string
}

var _ ports.AuditLog = (*Producer)(nil)

func NewProducer(sender MessageSender, auditQueueURL string) *Producer {
	return &Producer{
		sender:        sender,
		auditQueueURL: auditQueueURL,
	}
}

func NewSQSProducer(client SQSClient, auditQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, auditQueueURL)
}

// PublishAudit sends one audit event to the audit queue.
func (p *Producer) PublishAudit(ctx context.Context, event ports.AuditEvent) error {
	b, err := json.Marshal(AuditMessage{AuditEvent: event, Source: source})
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.String("app.userId", event.UserID))
	}

	attrs := map[string]types.MessageAttributeValue{
		EventTypeAttribute: {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(event.Kind)),
		},
	}
	if err := p.sender.SendMessage(ctx, p.auditQueueURL, b, attrs); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Record publishes the event and only logs a failure.
func (p *Producer) Record(ctx context.Context, event ports.AuditEvent) {
	if err := p.PublishAudit(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("event_id", event.ID).Str("kind", string(event.Kind)).Msg("Failed to publish audit event")
	}
}
