// Package storage issues presigned uploads for team images on S3-compatible storage.
package storage

import (
	"context" // Request-scoped deadlines
	"fmt"     // Formatting
	"strings" // String manipulation
	"time"    // Timestamps and durations

	"github.com/aws/aws-sdk-go-v2/aws"         // AWS core types
	"github.com/aws/aws-sdk-go-v2/config"      // AWS config loading
	"github.com/aws/aws-sdk-go-v2/credentials" // Static credentials
	"github.com/aws/aws-sdk-go-v2/service/s3"  // S3 client
	"github.com/google/uuid"                   // Object keys

	"scorekeeper/internal/domain" // Domain models and errors
)

var imageExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Upload is a presigned PUT plus the URL the object will be served from
type Upload struct {
	UploadURL string    `json:"upload_url"`
	ImageURL  string    `json:"image_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Options configures the image bucket
type Options struct {
	Endpoint      string // Empty for AWS
	Region        string
	Bucket        string
	AccessKeyID   string
	SecretKey     string
	PublicBaseURL string // Defaults to endpoint/bucket
}

// ImageStore presigns team image uploads
type ImageStore struct {
	presign    *s3.PresignClient
	bucket     string
	publicBase string
	expires    time.Duration
}

// NewImageStore builds an S3 client for the image bucket
func NewImageStore(ctx context.Context, opts Options) (*ImageStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := strings.TrimRight(opts.PublicBaseURL, "/")
	if publicBase == "" {
		if opts.Endpoint != "" {
			publicBase = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}

	return &ImageStore{
		presign:    s3.NewPresignClient(client),
		bucket:     opts.Bucket,
		publicBase: publicBase,
		expires:    15 * time.Minute,
	}, nil
}

// PresignTeamImage returns a short-lived PUT URL for a new team image
func (s *ImageStore) PresignTeamImage(ctx context.Context, contentType string) (*Upload, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, domain.NewValidationError("content_type", "must be one of image/png, image/jpeg, image/webp, image/svg+xml")
	}
	key := "teams/" + uuid.NewString() + ext

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &Upload{
		UploadURL: req.URL,
		ImageURL:  s.publicBase + "/" + key,
		ExpiresAt: time.Now().Add(s.expires),
	}, nil
}
