package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gadgetbay/gadgetbay/internal/jobs"
)

// MailJob delivers account notices. Delivery is logged; no mail transport is
// configured.
type MailJob struct {
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewMailJob constructs the mail:send handler.
func NewMailJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailJob{logger: logger, metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskTypeSendEmail)
	defer func() { err = tracker.End(err) }()

	var payload SendEmailPayload
	if uerr := json.Unmarshal(t.Payload(), &payload); uerr != nil {
		return fmt.Errorf("decode payload: %v: %w", uerr, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("missing recipient: %w", asynq.SkipRetry)
	}
	j.logger.Info("mail delivered",
		slog.String("to", payload.To),
		slog.String("subject", payload.Subject),
		slog.Int("body_bytes", len(payload.Body)),
	)
	return nil
}
