// Package media is the Media Store: it writes uploaded files to disk and
// hands back the URL path the static file server will answer on.
//
// BUCKETS:
// There are exactly two, chosen by MIME type prefix:
//
//	image/*        → <root>/images, served at /uploads/images/<name>
//	anything else  → <root>/videos, served at /uploads/videos/<name>
//
// "Anything else" really means anything: an application/pdf lands in videos.
// That is the long-standing behaviour clients rely on, so it is kept.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	ImageBucket = "images"
	VideoBucket = "videos"

	// MountPoint is the URL prefix the HTTP server serves the root under.
	MountPoint = "/uploads"
)

// BucketFor returns the bucket a file with this MIME type belongs in.
func BucketFor(mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return ImageBucket
	}
	return VideoBucket
}

// DiskStore saves files below a root directory.
type DiskStore struct {
	root   string
	now    func() time.Time
	logger *slog.Logger
}

// NewDiskStore does not touch the filesystem; bucket directories are created
// on first use.
func NewDiskStore(root string, logger *slog.Logger) *DiskStore {
	return &DiskStore{root: root, now: time.Now, logger: logger}
}

// Root is the directory the static file server should expose.
func (s *DiskStore) Root() string {
	return s.root
}

// Save copies r into the bucket for mimeType and returns the file's reference.
//
// FILE NAMES:
// The stored name is "<unix millis>-<original base name>". The timestamp keeps
// two uploads of "cat.png" apart; there is no collision check beyond that.
// filepath.Base strips any directories a client smuggled into the name.
//
// A partially written file is removed if the copy fails.
func (s *DiskStore) Save(ctx context.Context, filename, mimeType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	bucket := BucketFor(mimeType)
	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("media: creating %s: %w", dir, err)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), sanitize(filename))
	full := filepath.Join(dir, name)

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("media: creating %s: %w", full, err)
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return "", fmt.Errorf("media: writing %s: %w", full, err)
	}

	ref := path.Join(MountPoint, bucket, name)
	s.logger.Debug("media stored",
		slog.String("ref", ref),
		slog.String("mime", mimeType),
		slog.Int64("bytes", written),
	)
	return ref, nil
}

// sanitize reduces a client-supplied filename to a safe base name.
func sanitize(filename string) string {
	// Browsers on Windows may send "C:\fakepath\cat.png".
	filename = strings.ReplaceAll(filename, "\\", "/")
	base := path.Base(filename)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "upload"
	}
	return base
}
