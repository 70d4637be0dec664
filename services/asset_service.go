package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// AssetService stores record binary payloads (container images) in S3.
// Records reference assets by key; the bytes never travel inside a
// record.
type AssetService struct {
	s3     *s3.Client
	bucket string
}

func NewAssetService() (*AssetService, error) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return nil, errors.New("S3_BUCKET not set")
	}
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config for S3: %w", err)
	}
	return &AssetService{s3: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Upload stores the bytes under a fresh key and returns it.
func (a *AssetService) Upload(ctx context.Context, data []byte) (string, error) {
	key := uuid.NewString()
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String("assets/" + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	return key, nil
}

func (a *AssetService) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := a.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String("assets/" + key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download asset %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
