// Package storage moves configuration and generated artifacts between the
// local working tree and a backing bucket. The transformation engine never
// touches it: callers feed the engine local files and persist its output.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Bucket reads configuration trees and persists generated artifacts.
type Bucket interface {
	// Download copies every object under prefix into dest, preserving
	// relative paths.
	Download(ctx context.Context, prefix, dest string) error

	// Upload stores a local file under the given object name.
	Upload(ctx context.Context, localPath, objectName string) error
}

// LocalBucket implements Bucket over a directory, for development and tests.
type LocalBucket struct {
	// Root is the directory standing in for the bucket.
	Root string
}

// Download copies files under Root/prefix into dest.
func (b *LocalBucket) Download(_ context.Context, prefix, dest string) error {
	src := filepath.Join(b.Root, prefix)
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return copyFile(path, filepath.Join(dest, rel))
	})
}

// Upload copies a local file under Root/objectName.
func (b *LocalBucket) Upload(_ context.Context, localPath, objectName string) error {
	return copyFile(localPath, filepath.Join(b.Root, objectName))
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// ObjectName normalizes a local artifact path into its bucket object name.
func ObjectName(localPath string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(localPath)), "./")
}
