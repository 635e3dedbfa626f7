// Package storage issues time-limited download links for objects kept in
// an S3-compatible store.
package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/config"
)

// Signer presigns GET requests. Signing is local; no request reaches the
// store until the client follows the returned URL.
type Signer struct {
	presign *s3.PresignClient
	expiry  time.Duration
}

func NewSigner(ctx context.Context, cfg config.StorageConfig) (*Signer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load storage config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := time.Duration(cfg.SignedURLExpiry) * time.Second
	if expiry <= 0 {
		expiry = config.DefaultSignedURLExpiry * time.Second
	}

	return &Signer{
		presign: s3.NewPresignClient(client),
		expiry:  expiry,
	}, nil
}

// IssueSignedURL returns a GET link for bucket/objectPath valid for the
// configured expiry.
func (s *Signer) IssueSignedURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if bucket == "" || objectPath == "" {
		return "", errors.New("bucket and object path are required")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", errors.Wrapf(err, "presign %s/%s", bucket, objectPath)
	}

	return req.URL, nil
}

func (s *Signer) Expiry() time.Duration {
	return s.expiry
}
