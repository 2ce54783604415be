// Package s3 uploads the run report to an S3 bucket or an S3-compatible
// object store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"

	"omnicart/internal/sink"
)

// ErrNoBucket is returned by New when Config.Bucket is empty.
var ErrNoBucket = errors.New("s3: bucket is empty")

// Config describes the destination bucket and credentials. Empty credentials
// fall back to the SDK default chain (env, shared config, instance role).
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // set for MinIO and other S3-compatible stores
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// putter is the subset of the S3 API the sink uses.
type putter interface {
	PutObjectWithContext(ctx aws.Context, in *awss3.PutObjectInput, opts ...request.Option) (*awss3.PutObjectOutput, error)
}

// Sink writes <prefix>/<run-id>.json.
type Sink struct {
	client putter
	cfg    Config
}

var _ sink.Sink = (*Sink)(nil)

// New creates an AWS session from cfg and returns a Sink.
func New(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrNoBucket
	}
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.PathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3: create AWS session: %w", err)
	}
	return &Sink{client: awss3.New(sess), cfg: cfg}, nil
}

// Name implements sink.Sink.
func (s *Sink) Name() string { return "s3" }

// Key returns the object key for a run.
func (s *Sink) Key(res sink.Result) string {
	return path.Join(strings.Trim(s.cfg.Prefix, "/"), res.RunID.String()+".json")
}

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, res sink.Result) error {
	body, err := res.Report.MarshalIndent()
	if err != nil {
		return fmt.Errorf("s3: encode report: %w", err)
	}
	key := s.Key(res)
	_, err = s.client.PutObjectWithContext(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json; charset=utf-8"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]*string{
			"job":        aws.String(res.Job),
			"started-at": aws.String(res.StartedAt.UTC().Format("2006-01-02T15:04:05Z")),
		},
	})
	if err != nil {
		return fmt.Errorf("s3: put s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	return nil
}
