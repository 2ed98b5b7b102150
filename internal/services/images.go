package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
)

const (
	maxImageSize     = 5 * 1024 * 1024
	imageCacheHeader = "public, max-age=31536000"
	uploadAttempts   = 3

	BlogHeroImageFolder = "blog-hero-images"
)

// ImageBackend stores an object and returns its public URL.
type ImageBackend interface {
	Name() string
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// LocalImageBackend writes images under a directory served by the API.
type LocalImageBackend struct {
	dir     string
	baseURL string
}

func NewLocalImageBackend(dir, baseURL string) *LocalImageBackend {
	if dir == "" {
		dir = "./data/images"
	}
	if baseURL == "" {
		baseURL = "/images"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Images: could not create images directory %s: %v", dir, err)
	}
	return &LocalImageBackend{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (b *LocalImageBackend) Name() string { return "local" }

// Dir is the directory the images are written to.
func (b *LocalImageBackend) Dir() string { return b.dir }

func (b *LocalImageBackend) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	filePath := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create image folder: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return b.baseURL + "/" + key, nil
}

// S3ImageBackend uploads to an S3-compatible bucket such as DigitalOcean
// Spaces.
type S3ImageBackend struct {
	client *s3.Client
	bucket string
	cdnURL string
}

type S3Config struct {
	Key      string
	Secret   string
	Region   string
	Bucket   string
	Endpoint string
	CDNURL   string
}

func NewS3ImageBackend(ctx context.Context, cfg S3Config) (*S3ImageBackend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("image bucket is not configured")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.Region != "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load image storage config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	cdn := cfg.CDNURL
	if cdn == "" {
		cdn = fmt.Sprintf("https://%s.%s.digitaloceanspaces.com", cfg.Bucket, cfg.Region)
	}
	return &S3ImageBackend{client: client, bucket: cfg.Bucket, cdnURL: strings.TrimSuffix(cdn, "/")}, nil
}

func (b *S3ImageBackend) Name() string { return "s3" }

func (b *S3ImageBackend) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(imageCacheHeader),
		ACL:          types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", err
	}
	return b.cdnURL + "/" + key, nil
}

// ImageService validates uploads and hands them to a backend.
type ImageService struct {
	backend    ImageBackend
	now        func() time.Time
	retryDelay time.Duration
}

func NewImageService(backend ImageBackend) *ImageService {
	return &ImageService{backend: backend, now: time.Now, retryDelay: 200 * time.Millisecond}
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFileName replaces everything but letters, digits, dots and
// hyphens with underscores.
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(path.Base(name), "_")
}

// Upload stores an image as {folder}/{unix millis}-{sanitized name} and
// returns its URL. Failures come back as plain-language messages.
func (s *ImageService) Upload(ctx context.Context, folder, fileName, contentType string, data []byte) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", validationErr("file", "File must be an image")
	}
	if len(data) > maxImageSize {
		return "", validationErr("file", "File size must be less than 5MB")
	}
	if len(data) == 0 {
		return "", validationErr("file", "File is empty")
	}
	if folder == "" {
		folder = "uploads"
	}
	name := SanitizeFileName(fileName)
	if name == "" || name == "." || name == "_" {
		name = uuid.New().String()
	}
	key := fmt.Sprintf("%s/%d-%s", strings.Trim(folder, "/"), s.now().UnixMilli(), name)

	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		url, err := s.backend.Put(ctx, key, contentType, data)
		if err == nil {
			metrics.ImageUploadsTotal.WithLabelValues(s.backend.Name(), "success").Inc()
			log.Printf("Images: uploaded %s", key)
			return url, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("Images: upload of %s failed (%d/%d): %v", key, attempt, uploadAttempts, err)
		if attempt < uploadAttempts {
			if err := sleepCtx(ctx, s.retryDelay); err != nil {
				break
			}
		}
	}
	metrics.ImageUploadsTotal.WithLabelValues(s.backend.Name(), "error").Inc()
	return "", errors.New(uploadErrorMessage(lastErr))
}

// uploadErrorMessage turns a storage failure into a message for the admin UI.
func uploadErrorMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Upload was canceled"
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return "Unauthorized: please check the image storage credentials"
		case "NoSuchBucket":
			return "Upload failed: the image bucket does not exist"
		case "QuotaExceeded", "ServiceUnavailable", "SlowDown":
			return "Storage quota exceeded or storage is busy, please try again later"
		}
	}
	if os.IsPermission(err) {
		return "Unauthorized: the server cannot write to the images directory"
	}
	if err == nil {
		return "Unknown error occurred during upload"
	}
	return fmt.Sprintf("Failed to upload image (%v)", err)
}
