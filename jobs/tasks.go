package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for account notices.
	TaskTypeSendEmail = "mail:send"
	// TaskSuspensionReview lists suspensions whose informational expiry has passed.
	TaskSuspensionReview = "accounts:suspension_review"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PayloadFromNotice converts an account notice into a mail payload.
func PayloadFromNotice(n accounts.Notice) SendEmailPayload {
	return SendEmailPayload{To: n.To, Subject: n.Subject, Body: n.Body}
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// NewSuspensionReviewTask constructs the cron task for suspension review.
func NewSuspensionReviewTask() *asynq.Task {
	return asynq.NewTask(TaskSuspensionReview, nil)
}
