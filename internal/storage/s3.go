package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/tutor-kb/pkg/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "tutor-kb"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for the extract archive.
type Client struct {
	minioClient *minio.Client
	bucket      string
	now         func() time.Time
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
		now:         time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Page is one extracted source kept in the archive.
type Page struct {
	URL        string            `json:"url"`
	Title      string            `json:"title,omitempty"`
	SourceType models.SourceType `json:"source_type"`
	File       string            `json:"file"`
	Text       string            `json:"-"` // stored as its own object
}

// RunMetadata describes one archived ingestion run.
type RunMetadata struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	PageCount int    `json:"page_count"`
	Pages     []Page `json:"pages"`
}

// TextFilename returns the archive filename for a page URL.
func TextFilename(pageURL string) string {
	return models.GenerateDocumentID(pageURL) + ".txt"
}

// RunPrefix returns a unique archive prefix for a run started at t.
func RunPrefix(t time.Time) string {
	return path.Join("ingests", t.UTC().Format("2006-01-02T15-04-05")+"-"+uuid.NewString()[:8])
}

// ArchiveRun writes every page and the run metadata under a fresh prefix,
// which it returns.
func (c *Client) ArchiveRun(ctx context.Context, query string, pages []Page) (string, error) {
	now := c.now()
	prefix := RunPrefix(now)

	meta := RunMetadata{
		Query:     query,
		Timestamp: now.UTC().Format(time.RFC3339),
		PageCount: len(pages),
		Pages:     make([]Page, 0, len(pages)),
	}

	for _, page := range pages {
		page.File = TextFilename(page.URL)
		if err := c.PutText(ctx, prefix, page.File, page.Text); err != nil {
			return "", err
		}
		meta.Pages = append(meta.Pages, page)
	}

	if err := c.PutMetadata(ctx, prefix, meta); err != nil {
		return "", err
	}
	return prefix, nil
}

// PutText writes an extracted text file to S3.
func (c *Client) PutText(ctx context.Context, prefix, filename, content string) error {
	objectName := path.Join(prefix, "pages", filename)
	reader := strings.NewReader(content)

	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName, reader, int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("failed to put text: %w", err)
	}
	return nil
}

// PutMetadata writes the run metadata JSON to S3.
func (c *Client) PutMetadata(ctx context.Context, prefix string, meta RunMetadata) error {
	objectName := path.Join(prefix, "metadata.json")

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	reader := bytes.NewReader(data)
	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put metadata: %w", err)
	}
	return nil
}

// ListTextFiles returns all text files under a prefix.
func (c *Client) ListTextFiles(ctx context.Context, prefix string) ([]string, error) {
	pagesPrefix := path.Join(prefix, "pages") + "/"
	var files []string

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    pagesPrefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, ".txt") {
			files = append(files, path.Base(object.Key))
		}
	}

	return files, nil
}

// GetText reads an extracted text file from S3.
func (c *Client) GetText(ctx context.Context, prefix, filename string) (string, error) {
	objectName := path.Join(prefix, "pages", filename)

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	return string(data), nil
}

// GetMetadata reads the run metadata from S3.
func (c *Client) GetMetadata(ctx context.Context, prefix string) (*RunMetadata, error) {
	objectName := path.Join(prefix, "metadata.json")

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &meta, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
