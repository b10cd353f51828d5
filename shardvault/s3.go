package shardvault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// S3Vault holds a single shard as an object in Amazon S3 or a compatible
// service. Shard objects are always written private; unlike general
// content storage there is no public-read mode for key material.
type S3Vault struct {
	client      *s3.S3
	bucketName  string
	objectKey   string
	log         *slog.Logger
	locationURI string
}

// NewS3Vault creates a vault bound to a single S3 object.
// If accessKey and secretKey are empty the default AWS credential chain
// applies, which covers instance profiles and environment credentials.
func NewS3Vault(bucketName, objectKey, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Vault, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, objectKey, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		// Path-style addressing for MinIO and other S3-compatible stores
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Vault{
		client:      s3.New(sess),
		bucketName:  bucketName,
		objectKey:   strings.TrimPrefix(objectKey, "/"),
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves the shard object from S3.
func (v *S3Vault) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	result, err := v.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucketName),
		Key:    aws.String(v.objectKey),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			v.log.Debug("Shard not found in S3",
				slog.String("bucket", v.bucketName),
				slog.String("key", v.objectKey))
			return nil, interfaces.ErrShardNotFound
		}
		return nil, fmt.Errorf("failed to get shard object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read shard object body: %w", err)
	}

	v.log.Debug("Fetched shard from S3",
		slog.String("bucket", v.bucketName),
		slog.String("key", v.objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Overwrite destructively replaces the shard object in S3.
func (v *S3Vault) Overwrite(ctx context.Context, content []byte) error {
	start := time.Now()

	_, err := v.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucketName),
		Key:    aws.String(v.objectKey),
		Body:   bytes.NewReader(content),
		ACL:    aws.String("private"),
	})
	if err != nil {
		return fmt.Errorf("failed to overwrite shard object in S3: %w", err)
	}

	v.log.Debug("Overwrote shard in S3",
		slog.String("bucket", v.bucketName),
		slog.String("key", v.objectKey),
		slog.Int("size", len(content)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if the bucket is reachable.
func (v *S3Vault) Available(ctx context.Context) bool {
	_, err := v.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(v.bucketName),
	})
	if err != nil {
		v.log.Warn("S3 vault unavailable",
			slog.String("bucket", v.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this vault.
func (v *S3Vault) Name() string {
	return fmt.Sprintf("s3-%s", v.bucketName)
}

// LocationURI returns the URI that identifies this vault.
func (v *S3Vault) LocationURI() string {
	return v.locationURI
}
