package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/timkrebs/imageweb/internal/metrics"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// Object is an open object and its metadata
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
	ETag        string
}

// ObjectInfo is the metadata of a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Storage provides object storage operations
type Storage struct {
	client     *minio.Client
	metrics    *metrics.StorageMetrics
	bucketName string
}

// Config holds MinIO configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New creates a new storage client
func New(cfg Config) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Storage{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// SetMetrics injects metrics collectors into storage client
func (s *Storage) SetMetrics(m *metrics.StorageMetrics) {
	s.metrics = m
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Upload uploads a file to storage
func (s *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	start := time.Now()
	status := "success"

	_, err := s.client.PutObject(ctx, s.bucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})

	if err != nil {
		status = "error"
	}

	if s.metrics != nil {
		duration := time.Since(start).Seconds()
		s.metrics.OperationDuration.WithLabelValues("upload", status).Observe(duration)
		s.metrics.OperationsTotal.WithLabelValues("upload", status).Inc()
		if status == "success" {
			s.metrics.BytesTransferred.WithLabelValues("upload").Add(float64(size))
		}
	}

	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Download opens an object for reading. Missing objects report ErrNotFound.
func (s *Storage) Download(ctx context.Context, key string) (*Object, error) {
	start := time.Now()
	status := "success"

	obj, info, err := s.open(ctx, key)

	if err != nil {
		status = "error"
		if errors.Is(err, ErrNotFound) {
			status = "not_found"
		}
	}

	if s.metrics != nil {
		duration := time.Since(start).Seconds()
		s.metrics.OperationDuration.WithLabelValues("download", status).Observe(duration)
		s.metrics.OperationsTotal.WithLabelValues("download", status).Inc()
		if status == "success" {
			s.metrics.BytesTransferred.WithLabelValues("download").Add(float64(info.Size))
		}
	}

	if err != nil {
		return nil, err
	}
	return &Object{ReadCloser: obj, Size: info.Size, ContentType: info.ContentType, ETag: info.ETag}, nil
}

// open fetches the object and its info. GetObject is lazy, so the Stat call
// is what surfaces a missing key.
func (s *Storage) open(ctx context.Context, key string) (*minio.Object, minio.ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minio.ObjectInfo{}, wrapError("get object", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, minio.ObjectInfo{}, wrapError("stat object", key, err)
	}
	return obj, info, nil
}

func wrapError(op, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("failed to %s %s: %w", op, key, err)
}

// Delete removes a file from storage
func (s *Storage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	status := "success"

	err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})

	if err != nil {
		status = "error"
	}

	if s.metrics != nil {
		duration := time.Since(start).Seconds()
		s.metrics.OperationDuration.WithLabelValues("delete", status).Observe(duration)
		s.metrics.OperationsTotal.WithLabelValues("delete", status).Inc()
	}

	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// Stat retrieves object metadata without opening the object. Missing
// objects report ErrNotFound.
func (s *Storage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	start := time.Now()
	status := "success"

	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		err = wrapError("stat object", key, err)
		status = "error"
		if errors.Is(err, ErrNotFound) {
			status = "not_found"
		}
	}

	if s.metrics != nil {
		duration := time.Since(start).Seconds()
		s.metrics.OperationDuration.WithLabelValues("stat", status).Observe(duration)
		s.metrics.OperationsTotal.WithLabelValues("stat", status).Inc()
	}

	if err != nil {
		return nil, err
	}
	return &ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Health checks if storage is accessible
func (s *Storage) Health(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
