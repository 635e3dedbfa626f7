package email

import "context"

func (c *Client) SendCertificateIssuedEmail(ctx context.Context, to, firstName, courseTitle string) error {
	data := map[string]string{
		"UserFirstName": firstName,
		"CourseTitle":   courseTitle,
	}

	return c.SendEmail(
		ctx,
		to,
		"Your "+courseTitle+" certificate is ready",
		TemplateCertificateIssued,
		data,
	)
}
