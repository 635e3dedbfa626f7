package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/careportal/internal/config"
	"github.com/deppfellow/careportal/internal/lib/email"
)

type Mailer interface {
	SendCertificateIssuedEmail(ctx context.Context, to, firstName, courseTitle string) error
}

type Recipient struct {
	Email     string
	FirstName string
}

type RecipientLookup interface {
	LookupRecipient(ctx context.Context, userID string) (*Recipient, error)
}

var ErrNoEmailAddress = errors.New("user has no email address")

// ClerkRecipients resolves users through the Clerk backend API. The API
// key is set globally by clerk.SetKey at startup.
type ClerkRecipients struct{}

func (ClerkRecipients) LookupRecipient(ctx context.Context, userID string) (*Recipient, error) {
	u, err := user.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %s", userID)
	}
	return recipientFromUser(u)
}

// recipientFromUser prefers the primary address and falls back to the first.
func recipientFromUser(u *clerk.User) (*Recipient, error) {
	if u == nil || len(u.EmailAddresses) == 0 {
		return nil, ErrNoEmailAddress
	}

	address := u.EmailAddresses[0].EmailAddress
	if u.PrimaryEmailAddressID != nil {
		for _, ea := range u.EmailAddresses {
			if ea != nil && ea.ID == *u.PrimaryEmailAddressID {
				address = ea.EmailAddress
				break
			}
		}
	}
	if address == "" {
		return nil, ErrNoEmailAddress
	}

	r := &Recipient{Email: address}
	if u.FirstName != nil {
		r.FirstName = *u.FirstName
	}
	return r, nil
}

// InitHandlers wires the dependencies used by task handlers.
func (j *JobService) InitHandlers(cfg *config.Config, logger *zerolog.Logger) {
	j.mailer = email.NewClient(cfg, logger)
	j.recipients = ClerkRecipients{}
}

func (j *JobService) handleCertificateIssuedTask(ctx context.Context, t *asynq.Task) error {
	var p CertificateIssuedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal certificate issued payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := j.logger.With().
		Str("type", "certificate_issued").
		Str("user_id", p.UserID).
		Str("course_id", p.CourseID).
		Logger()

	logger.Info().Msg("Processing certificate issued email task")

	recipient, err := j.recipients.LookupRecipient(ctx, p.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve email recipient")
		if errors.Is(err, ErrNoEmailAddress) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	courseTitle := p.CourseTitle
	if courseTitle == "" {
		courseTitle = p.CourseID
	}

	if err := j.mailer.SendCertificateIssuedEmail(ctx, recipient.Email, recipient.FirstName, courseTitle); err != nil {
		logger.Error().Err(err).Msg("Failed to send certificate issued email")
		return err
	}

	logger.Info().Msg("Successfully sent certificate issued email")
	return nil
}
