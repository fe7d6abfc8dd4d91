package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mail-1")}, nil
}

func TestNotify(t *testing.T) {
	client := &fakeSES{}
	n := NewEmailNotifier(client, "bot@example.com", "ops@example.com")

	n.Notify(context.Background(), "900", "Failed to create private channel for alice (ID: 42)\nplatform unavailable")

	if len(client.inputs) != 1 {
		t.Fatalf("expected one email, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.Source) != "bot@example.com" || in.Destination.ToAddresses[0] != "ops@example.com" {
		t.Errorf("unexpected addressing %+v", in)
	}
	if got := aws.ToString(in.Message.Subject.Data); got != "[attendance-bot] Failed to create private channel for alice (ID: 42)" {
		t.Errorf("unexpected subject %q", got)
	}
	body := aws.ToString(in.Message.Body.Text.Data)
	if !strings.Contains(body, "platform unavailable") || !strings.Contains(body, "Admin user: 900") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestNotify_SwallowsErrors(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	NewEmailNotifier(client, "a@example.com", "b@example.com").Notify(context.Background(), "", "boom")
	if len(client.inputs) != 1 {
		t.Fatal("expected a send attempt")
	}
}

func TestSubject_Truncates(t *testing.T) {
	got := subject(strings.Repeat("x", 200))
	if len([]rune(got)) != len(subjectPrefix)+80 || !strings.HasSuffix(got, "...") {
		t.Errorf("unexpected subject %q", got)
	}
}
