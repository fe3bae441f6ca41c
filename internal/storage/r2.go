package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lectorium/server/internal/config"
)

// Client wraps the R2 bucket holding book covers (images/books/), chapter
// audio (file/books/) and profile photos (images/users/). Callers generate
// unique keys; there is no overwrite protection.
type Client struct {
	s3            *s3.Client
	bucket        string
	publicBaseURL string
}

// NewClient initializes the R2 client using static credentials and the
// account endpoint.
func NewClient(cfg config.R2Config) *Client {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Client{
		s3:            client,
		bucket:        cfg.BucketName,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}
}

// Put stores the blob under key and returns its public URL.
func (c *Client) Put(ctx context.Context, key string, blob []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(blob),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return "", err
	}
	return c.publicBaseURL + "/" + key, nil
}

// Delete removes an object. Callers treat failures as best effort and only
// log them.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err
}

// KeyFromURL maps a public URL back to its object key, reporting whether the
// URL belongs to this bucket.
func (c *Client) KeyFromURL(publicURL string) (string, bool) {
	prefix := c.publicBaseURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, prefix), true
}
