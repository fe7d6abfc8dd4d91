package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// ErrMalformed marks messages that can never be archived.
var ErrMalformed = errors.New("malformed audit message")

// Processor archives audit events taken from the audit queue.
type Processor struct {
	Repo repository.Repository
}

func NewProcessor(r repository.Repository) *Processor {
	return &Processor{Repo: r}
}

// Process stores one audit event. Database failures are retried with
// exponential backoff; malformed payloads are not.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, fmt.Errorf("%w: empty body", ErrMalformed)
	}

	var event messaging.AuditMessage
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if event.ID == "" || event.Kind == "" || event.Timestamp.IsZero() {
		return false, 0, fmt.Errorf("%w: missing id, kind or timestamp", ErrMalformed)
	}

	inserted, err := p.Repo.InsertEvent(ctx, event.AuditEvent, event.Source)
	if err != nil {
		delay := calculateBackoff(receiveCount(msg))
		return true, delay, fmt.Errorf("failed to archive event %s: %w", event.ID, err)
	}

	l := log.Ctx(ctx).Info()
	if !inserted {
		l = log.Ctx(ctx).Debug()
	}
	l.Str("event_id", event.ID).
		Str("message_id", aws.ToString(msg.MessageId)).
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID).
		Bool("duplicate", !inserted).
		Msg("Audit event archived")
	return false, 0, nil
}

// receiveCount reads how many times SQS has handed out the message.
func receiveCount(msg types.Message) int {
	raw, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// calculateBackoff doubles the delay with each delivery, capped at one hour.
func calculateBackoff(retryCount int) int32 {
	backoff := math.Pow(2, float64(retryCount)) * 10
	if backoff > 3600 {
		return 3600
	}
	return int32(backoff)
}
