package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// GCSObjects is the object store for uploaded documents: it issues signed
// upload URLs and reads object bytes back.
type GCSObjects struct {
	client      *storage.Client
	bucket      string
	signerEmail string
}

// NewGCSObjects wraps a storage client for one bucket. signerEmail is the
// service account used to sign URLs; when empty the client detects it from
// the runtime credentials.
func NewGCSObjects(client *storage.Client, bucket, signerEmail string) *GCSObjects {
	return &GCSObjects{client: client, bucket: bucket, signerEmail: signerEmail}
}

// Bucket returns the bucket this store reads from.
func (o *GCSObjects) Bucket() string {
	return o.bucket
}

// SignedPutURL returns a V4 signed URL that allows exactly one object key to
// be written with the given content type until ttl elapses.
func (o *GCSObjects) SignedPutURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(ttl),
	}
	if o.signerEmail != "" {
		opts.GoogleAccessID = o.signerEmail
	}
	u, err := o.client.Bucket(o.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign upload URL for gs://%s/%s: %w", o.bucket, key, err)
	}
	return u, nil
}

// Fetch reads the whole object.
func (o *GCSObjects) Fetch(ctx context.Context, key string) ([]byte, error) {
	r, err := o.client.Bucket(o.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", o.bucket, key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", o.bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", o.bucket, key, err)
	}
	return data, nil
}
