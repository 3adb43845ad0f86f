package source

import (
	"context"
	"fmt"
	"io"
	"log"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of the S3 API used to fetch row files
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a JSON or JSON lines object from S3 or an S3 compatible store
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3Source builds an S3 client from the default AWS configuration chain
func NewS3Source(ctx context.Context, cfg config.S3Config) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, utils.NewConfigurationError(fmt.Errorf("rows.s3.bucket and rows.s3.key are required for the s3 source"))
	}

	cfgOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, utils.NewRowSourceError(fmt.Errorf("failed to load AWS config: %w", err), config.SourceS3)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return NewS3SourceWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3SourceWithClient reads bucket/key through an existing client
func NewS3SourceWithClient(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

func (s *S3Source) Name() string { return config.SourceS3 }

func (s *S3Source) Read(ctx context.Context) ([]model.Row, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, utils.NewRowSourceError(fmt.Errorf("failed to get object s3://%s/%s: %w", s.bucket, s.key, err), s.Name())
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, utils.NewRowSourceError(fmt.Errorf("failed to read object data: %w", err), s.Name())
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, utils.NewRowSourceError(fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, err), s.Name())
	}

	log.Printf("Read %d rows from s3://%s/%s", len(rows), s.bucket, s.key)
	return rows, nil
}
