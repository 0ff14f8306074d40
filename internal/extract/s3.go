// Package extract supplies per-entity batches from object storage: it
// downloads the source CSV objects and parses them into loosely typed
// batches shaped by the entity descriptors.
package extract

import (
	"context"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Config holds explicit construction parameters. Endpoint enables
// S3-compatible backends such as MinIO.
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	PathStyle bool
}

// S3Client reads source objects from a single bucket.
type S3Client struct {
	client *s3.Client
	bucket string
	log    *logrus.Logger
}

// NewS3Client builds an S3 client from config; credentials come from the
// default AWS chain (env, shared config, instance role).
func NewS3Client(ctx context.Context, cfg S3Config, log *logrus.Logger) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Client{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Fetch downloads one object and returns its content.
func (c *S3Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", c.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", c.bucket, key, err)
	}
	c.log.WithFields(logrus.Fields{
		"bucket": c.bucket,
		"object": key,
		"bytes":  len(data),
	}).Info("object downloaded")
	return data, nil
}
