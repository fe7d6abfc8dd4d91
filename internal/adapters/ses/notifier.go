package ses

import (
	"context"
	"strings"

	"attendance.service/internal/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const subjectPrefix = "[attendance-bot] "

// Client is the subset of the SES API the notifier uses.
type Client interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailNotifier mails admin escalations to a fixed address. The admin
// user id passed to Notify only ends up in the mail body.
type EmailNotifier struct {
	client Client
	sender string
	to     string
}

var _ ports.AdminNotifier = (*EmailNotifier)(nil)

func NewEmailNotifier(client Client, sender, to string) *EmailNotifier {
	return &EmailNotifier{client: client, sender: sender, to: to}
}

func (n *EmailNotifier) Notify(ctx context.Context, adminUserID, text string) {
	if err := n.send(ctx, adminUserID, text); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("to", n.to).Msg("Failed to email admin notification")
	}
}

func (n *EmailNotifier) send(ctx context.Context, adminUserID, text string) error {
	tracer := otel.Tracer("ses-admin-notifier")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if adminUserID != "" {
		span.SetAttributes(attribute.String("app.adminUserId", adminUserID))
	}

	body := text
	if adminUserID != "" {
		body = text + "\n\nAdmin user: " + adminUserID
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{n.to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject(text)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send email failed")
		return err
	}
	return nil
}

// subject is the first line of the notification, shortened for mail clients.
func subject(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	if r := []rune(line); len(r) > 80 {
		line = string(r[:77]) + "..."
	}
	return subjectPrefix + line
}
