// Package gcs uploads the record set to Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	recordstorage "github.com/JakeFAU/place-menu-crawler/internal/storage"
)

const contentType = "application/json; charset=utf-8"

// Config captures the bucket and object the dataset is written to.
type Config struct {
	Bucket string
	Object string
}

// Sink overwrites one object with the full record set on every save.
type Sink struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS-backed sink.
func New(client *storage.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Object) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &Sink{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

// URI returns the gs:// location written by Save.
func (s *Sink) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

// Save uploads the encoded records.
func (s *Sink) Save(ctx context.Context, records []crawler.StoreRecord) error {
	data, err := recordstorage.Encode(records)
	if err != nil {
		return err
	}
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("upload %s: %w (close writer: %v)", s.URI(), err, closeErr)
		}
		return fmt.Errorf("upload %s: %w", s.URI(), err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", s.URI(), err)
	}
	return nil
}
