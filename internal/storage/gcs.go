package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSBucket implements Bucket over a Google Cloud Storage bucket.
type GCSBucket struct {
	client *storage.Client
	bucket string
}

// NewGCSBucket opens a GCS-backed bucket using application default
// credentials.
func NewGCSBucket(ctx context.Context, bucket string) (*GCSBucket, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}

// Download copies every object under prefix into dest, preserving relative
// paths.
func (b *GCSBucket) Download(ctx context.Context, prefix, dest string) error {
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("listing gs://%s/%s: %w", b.bucket, prefix, err)
		}

		rel, err := filepath.Rel(prefix, attrs.Name)
		if err != nil || rel == "." {
			continue
		}
		if err := b.downloadObject(ctx, attrs.Name, filepath.Join(dest, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (b *GCSBucket) downloadObject(ctx context.Context, objectName, dst string) error {
	r, err := b.client.Bucket(b.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("reading gs://%s/%s: %w", b.bucket, objectName, err)
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("downloading gs://%s/%s: %w", b.bucket, objectName, err)
	}
	return out.Close()
}

// Upload stores a local file under the given object name.
func (b *GCSBucket) Upload(ctx context.Context, localPath, objectName string) error {
	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer in.Close()

	w := b.client.Bucket(b.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return fmt.Errorf("uploading gs://%s/%s: %w", b.bucket, objectName, err)
	}
	return w.Close()
}
