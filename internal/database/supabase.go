package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
)

// SupabaseClient talks to Supabase storage through its S3 endpoint
type SupabaseClient struct {
	s3Client  *s3.Client
	publicURL string
	logger    *logrus.Logger
	bucket    string
}

// NewSupabaseClient creates a client for the configured bucket
func NewSupabaseClient(cfg *config.Config, logger *logrus.Logger) (*SupabaseClient, error) {
	endpoint := cfg.SupabaseStorageEndpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("supabase storage endpoint is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.Supabase.AccessKeyID,
				SecretAccessKey: cfg.Supabase.SecretAccessKey,
			},
		}),
		awsconfig.WithRegion(cfg.Supabase.StorageRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &SupabaseClient{
		s3Client:  s3Client,
		publicURL: publicBase(cfg),
		logger:    logger,
		bucket:    cfg.Storage.Bucket,
	}, nil
}

// publicBase returns the REST prefix objects are served from
func publicBase(cfg *config.Config) string {
	if cfg.Supabase.URL != "" {
		return cfg.Supabase.URL + "/storage/v1/object/public"
	}
	return strings.TrimSuffix(cfg.SupabaseStorageEndpoint(), "/s3") + "/object/public"
}

// HealthCheck verifies that the bucket is reachable
func (s *SupabaseClient) HealthCheck(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("error checking Supabase storage connection: %w", err)
	}
	return nil
}

// PublicURL returns the public link of an object key
func (s *SupabaseClient) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key)
}

// UploadFile stores data under key, replacing any previous object, and
// returns its public URL
func (s *SupabaseClient) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading file to Supabase storage: %w", err)
	}

	url := s.PublicURL(key)
	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"file":   key,
		"url":    url,
		"size":   len(data),
	}).Info("File uploaded to Supabase storage")
	return url, nil
}

// DownloadFile reads an object
func (s *SupabaseClient) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading file from Supabase storage: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return data, nil
}

// DeleteFile removes an object
func (s *SupabaseClient) DeleteFile(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error deleting file from Supabase storage: %w", err)
	}
	return nil
}
