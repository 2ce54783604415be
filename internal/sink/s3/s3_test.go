package s3

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnicart/internal/domain"
	"omnicart/internal/sink"
)

type fakePutter struct {
	err  error
	in   *awss3.PutObjectInput
	body []byte
}

func (f *fakePutter) PutObjectWithContext(ctx aws.Context, in *awss3.PutObjectInput, _ ...request.Option) (*awss3.PutObjectOutput, error) {
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &awss3.PutObjectOutput{}, f.err
}

func testResult() sink.Result {
	return sink.Result{
		RunID:     uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		Job:       "omnicart",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Report:    domain.EmptyReport(),
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestNew_StaticCredentialsAndEndpoint(t *testing.T) {
	s, err := New(Config{
		Bucket:          "reports",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", s.Name())
	client, ok := s.client.(*awss3.S3)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000", client.Endpoint)
}

func TestSink_Write(t *testing.T) {
	fp := &fakePutter{}
	s := &Sink{client: fp, cfg: Config{Bucket: "reports", Prefix: "/omnicart/daily/"}}

	require.NoError(t, s.Write(context.Background(), testResult()))

	require.NotNil(t, fp.in)
	assert.Equal(t, "reports", aws.StringValue(fp.in.Bucket))
	assert.Equal(t, "omnicart/daily/7d444840-9dc0-11d1-b245-5ffdce74fad2.json", aws.StringValue(fp.in.Key))
	assert.Equal(t, int64(len(fp.body)), aws.Int64Value(fp.in.ContentLength))
	assert.Equal(t, "2026-01-02T03:04:05Z", aws.StringValue(fp.in.Metadata["started-at"]))
	assert.JSONEq(t, `{"seller_performance":{},"overall_summary":{}}`, string(fp.body))
}

func TestSink_KeyWithoutPrefix(t *testing.T) {
	s := &Sink{cfg: Config{Bucket: "b"}}
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2.json", s.Key(testResult()))
}

func TestSink_WriteError(t *testing.T) {
	boom := errors.New("access denied")
	s := &Sink{client: &fakePutter{err: boom}, cfg: Config{Bucket: "reports"}}

	err := s.Write(context.Background(), testResult())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s3://reports/")
}
