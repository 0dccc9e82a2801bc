package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	jobmetrics "github.com/gadgetbay/gadgetbay/internal/jobs"
)

// ExpiredSuspensionLister reports suspensions past their informational expiry.
type ExpiredSuspensionLister interface {
	ListExpiredSuspensions(ctx context.Context, now time.Time) ([]accounts.Account, error)
}

// SuspensionReviewJob logs suspended accounts whose expiry has passed so a
// moderator can reactivate them. It never changes account status.
type SuspensionReviewJob struct {
	accounts ExpiredSuspensionLister
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
	now      func() time.Time
}

// NewSuspensionReviewJob constructs the cron handler.
func NewSuspensionReviewJob(lister ExpiredSuspensionLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *SuspensionReviewJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuspensionReviewJob{accounts: lister, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskSuspensionReview tasks.
func (j *SuspensionReviewJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskSuspensionReview)
	defer func() { err = tracker.End(err) }()

	rows, err := j.accounts.ListExpiredSuspensions(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	for _, a := range rows {
		attrs := []any{slog.String("user_id", a.ID), slog.String("email", a.Email)}
		if a.SuspendedUntil != nil {
			attrs = append(attrs, slog.Time("suspended_until", *a.SuspendedUntil))
		}
		j.logger.Info("suspension expired, awaiting reactivation", attrs...)
	}
	j.metrics.SetReviewBacklog(len(rows))
	j.logger.Info("suspension review complete", slog.Int("expired", len(rows)))
	return nil
}
