package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// S3Client is the subset of the S3 API used by S3Sender.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sender captures outbound email as JSON objects in a bucket instead of
// delivering it. Staging environments use it to inspect traffic.
type S3Sender struct {
	client S3Client
	bucket string
	prefix string
	now    func() time.Time
}

// S3Option configures S3Sender.
type S3Option func(*s3Options)

type s3Options struct {
	client        S3Client
	configOptions []func(*config.LoadOptions) error
}

// WithS3Client sets a pre-configured client. Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) { o.client = client }
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) { o.configOptions = append(o.configOptions, option) }
}

// NewS3Sender creates an S3 capture sender from cfg.
func NewS3Sender(ctx context.Context, cfg Config, opts ...S3Option) (*S3Sender, error) {
	if cfg.S3Bucket == "" || cfg.S3Region == "" {
		return nil, errorf(ErrInvalidConfig, "S3Bucket and S3Region are required")
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
		if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
			))
		}
		awsOptions = append(awsOptions, options.configOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			}
			o.UsePathStyle = cfg.S3ForcePathStyle
		})
	}

	prefix := cfg.S3Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Sender{client: client, bucket: cfg.S3Bucket, prefix: prefix, now: time.Now}, nil
}

type capturedEmail struct {
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
	Message
}

// Send stores the message under <prefix><yyyy/mm/dd>/<id>.json and returns the id.
func (s *S3Sender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := s.now().UTC()
	body, err := json.Marshal(capturedEmail{MessageID: id, Timestamp: now, Message: msg})
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}

	key := fmt.Sprintf("%s%s/%s.json", s.prefix, now.Format("2006/01/02"), id)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, classifyS3Error(err))
	}
	return id, nil
}

func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 put failed (code: %s): %w", apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("s3 put failed: %w", err)
}
