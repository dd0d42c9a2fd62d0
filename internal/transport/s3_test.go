package transport

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubS3(t *testing.T) (*awsconfig.LoadOptions, *s3.Options) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	})

	var lo awsconfig.LoadOptions
	var so s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&so)
		}
		return &s3.Client{}
	}
	return &lo, &so
}

func TestNewS3Sink_AppliesConfig(t *testing.T) {
	lo, so := stubS3(t)

	_, err := NewS3Sink(context.Background(), S3Config{
		Bucket:    "ciload",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", lo.Region)
	require.NotNil(t, lo.Credentials)
	creds, err := lo.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", creds.AccessKeyID)

	require.NotNil(t, so.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *so.BaseEndpoint)
	assert.True(t, so.UsePathStyle)
}

func TestNewS3Sink_DefaultChain(t *testing.T) {
	lo, so := stubS3(t)

	_, err := NewS3Sink(context.Background(), S3Config{Bucket: "ciload", Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Nil(t, lo.Credentials)
	assert.Nil(t, so.BaseEndpoint)
}

func TestNewS3Sink_Errors(t *testing.T) {
	stubS3(t)

	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "bucket is required")

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Sink(context.Background(), S3Config{Bucket: "b"})
	assert.EqualError(t, err, "load-fail")
}

func TestS3Sink_Deliver(t *testing.T) {
	stubS3(t)

	sink, err := NewS3Sink(context.Background(), S3Config{Bucket: "ciload", Prefix: "/outbound/"})
	require.NoError(t, err)

	var got *s3.PutObjectInput
	var body []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		body, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, nil
	}

	loc, err := sink.Deliver(context.Background(), Delivery{
		Name: "out.xml", Data: []byte("<ciLoad/>"), CustomerNumber: "ACME01", FileNumber: "F1", Dialect: "xml",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://ciload/outbound/ACME01/F1/out.xml", loc)
	require.NotNil(t, got)
	assert.Equal(t, "ciload", aws.ToString(got.Bucket))
	assert.Equal(t, "outbound/ACME01/F1/out.xml", aws.ToString(got.Key))
	assert.Equal(t, "application/xml", aws.ToString(got.ContentType))
	assert.Equal(t, "<ciLoad/>", string(body))

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("denied")
	}
	_, err = sink.Deliver(context.Background(), Delivery{Name: "out.dat"})
	assert.ErrorContains(t, err, "failed to upload out.dat: denied")
}

func TestS3Sink_KeyWithoutName(t *testing.T) {
	sink := &S3Sink{bucket: "b"}
	key := sink.Key(Delivery{CustomerNumber: "ACME01"})
	assert.Regexp(t, `^ACME01/[0-9a-f-]{36}$`, key)
}
