package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
)

const (
	TaskCertificateIssued = "email:certificate_issued"
)

// CertificateIssuedPayload carries ids only; the recipient address is
// resolved when the task runs.
type CertificateIssuedPayload struct {
	UserID      string `json:"user_id"`
	CourseID    string `json:"course_id"`
	CourseTitle string `json:"course_title"`
}

func NewCertificateIssuedTask(p CertificateIssuedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskCertificateIssued,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}

// EnqueueCertificateIssued queues the certificate email for p.UserID.
func (j *JobService) EnqueueCertificateIssued(ctx context.Context, p CertificateIssuedPayload) error {
	task, err := NewCertificateIssuedTask(p)
	if err != nil {
		return errors.Wrap(err, "build certificate issued task")
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return errors.Wrap(err, "enqueue certificate issued task")
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("user_id", p.UserID).
		Msg("enqueued certificate issued email")

	return nil
}
