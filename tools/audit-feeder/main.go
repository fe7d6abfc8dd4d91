// audit-feeder publishes synthetic attendance sessions to the audit queue so
// the archive worker can be exercised locally against LocalStack.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"attendance.service/internal/ports/messaging"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	users := flag.Int("users", 10, "number of simulated sessions")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}
	logger.Setup(cfg.IsLocalDev)

	if cfg.AuditSQSQueueURL == "" {
		log.Fatal().Msg("AUDIT_SQS_QUEUE_URL is required")
	}

	ctx := context.Background()
	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}
	producer := messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.AuditSQSQueueURL)

	start := time.Now().Add(-8 * time.Hour)
	published := 0
	for i := 0; i < *users; i++ {
		user := ports.User{ID: strconv.Itoa(900000 + i), Name: fmt.Sprintf("feeder-%d", i)}
		for _, ev := range session(user, start) {
			if err := producer.PublishAudit(ctx, ev); err != nil {
				log.Fatal().Err(err).Str("user_id", user.ID).Msg("Publish failed")
			}
			published++
		}
	}
	log.Info().Int("events", published).Str("queue", cfg.AuditSQSQueueURL).Msg("Audit events published")
}

// session returns the events of one complete clock-in, report, clock-out cycle.
func session(user ports.User, start time.Time) []ports.AuditEvent {
	name := core.WorkspaceName(user.ID)
	ev := func(kind model.EventKind, at time.Time, details map[string]string) ports.AuditEvent {
		return ports.AuditEvent{ID: uuid.NewString(), Kind: kind, UserID: user.ID, UserName: user.Name, Timestamp: at, Details: details}
	}
	return []ports.AuditEvent{
		ev(model.EventClockIn, start, map[string]string{"channel": name}),
		ev(model.EventReportDetected, start.Add(7*time.Hour), map[string]string{"attachments": "1", "content": "Status Report feeder"}),
		ev(model.EventWorkspaceDeleted, start.Add(7*time.Hour), map[string]string{"channel": name, "reason": "report submitted"}),
		ev(model.EventClockOut, start.Add(8*time.Hour), map[string]string{"hours": "8", "minutes": "0"}),
	}
}
