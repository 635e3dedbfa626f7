// Package lib holds integrations that sit beside the request layers:
// the asynq background jobs in job and the Resend email client in email.
package lib
