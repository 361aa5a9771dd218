package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
)

const (
	MaxDocumentSize = 10 << 20 // 10MB
	presignTTL      = 15 * time.Minute
)

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum document size")
	ErrContentTypeDenied  = errors.New("content type not allowed")
	AllowedDocumentTypes  = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}
	extensionsByMimeTypes = map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
	}
)

// DocumentStore is what the verification pipeline needs from object storage.
type DocumentStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

type PresignedURLResponse struct {
	UploadURL string    `json:"upload_url"`
	FileURL   string    `json:"file_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
	} else {
		// default credential chain (env, ~/.aws/credentials, IAM role)
		cfg, err = config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
		if err != nil {
			cfg = aws.Config{Region: region}
		}
	}

	return &S3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// DocumentKey is drivers/<id>/<document type>/<uuid><ext>.
func DocumentKey(driverID uint, documentType, filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = extensionsByMimeTypes[contentType]
	}
	return fmt.Sprintf("drivers/%d/%s/%s%s", driverID, documentType, uuid.New().String(), ext)
}

// PresignDocumentUpload returns a PUT URL for a driver document upload.
func (s *S3Storage) PresignDocumentUpload(ctx context.Context, driverID uint, documentType, filename, contentType string, size int64) (*PresignedURLResponse, error) {
	if err := ValidateFileSize(size, MaxDocumentSize); err != nil {
		return nil, err
	}
	if err := ValidateContentType(contentType, AllowedDocumentTypes); err != nil {
		return nil, err
	}

	key := DocumentKey(driverID, documentType, filename, contentType)

	presignClient := s3.NewPresignClient(s.client)
	presignedReq, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedURLResponse{
		UploadURL: presignedReq.URL,
		FileURL:   s.FileURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(presignTTL),
	}, nil
}

func (s *S3Storage) FileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

// Fetch downloads a stored document for OCR and face matching.
func (s *S3Storage) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Error("Failed to fetch document from S3", err, map[string]interface{}{
			"key": key,
		})
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func ValidateFileSize(size int64, maxSize int64) error {
	if size <= 0 || size > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, maxSize)
	}
	return nil
}

func ValidateContentType(contentType string, allowedTypes []string) error {
	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContentTypeDenied, contentType)
}
