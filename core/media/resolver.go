package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"toot-importer/core/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Config holds configuration for media resolution.
type Config struct {
	// Host is the base URL serving full-resolution media originals.
	Host string `mapstructure:"host" default:"https://pbs.twimg.com"`
	// PollSeconds is the fixed interval between media processing polls.
	PollSeconds int `mapstructure:"poll_seconds" default:"10"`
	// TimeoutSeconds is the timeout for original fetches.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Uploader is the slice of the destination API the resolver needs.
type Uploader interface {
	// UploadMedia uploads one attachment and reports whether it is
	// immediately usable or still processing.
	UploadMedia(ctx context.Context, name, filename, contentType string, data io.Reader, description string) (string, bool, error)
	// GetMedia reports whether an uploaded attachment has finished
	// processing.
	GetMedia(ctx context.Context, id string) (bool, error)
}

// Resolver locates the binary for a media reference, uploads it, and waits
// for asynchronous server-side processing to complete.
//
// Binary resolution prefers, in order: a previously fetched original on disk,
// the mirror bucket, a fresh fetch of the full-resolution original (404
// tolerated), and finally the lower-resolution copy bundled in the archive.
type Resolver struct {
	cfg         Config
	uploader    Uploader
	originalDir string
	archiveDir  string
	httpClient  *http.Client
	log         *zap.Logger

	// mirror is nil when the mirror bucket is disabled.
	mirror storage.Client
	bucket string

	// sleep is swapped out by tests to avoid real polling waits.
	sleep func(time.Duration)
}

// NewResolver creates a resolver. originalDir holds fetched full-resolution
// copies; archiveDir is the archive's bundled media directory.
func NewResolver(cfg Config, originalDir, archiveDir string, uploader Uploader, log *zap.Logger) *Resolver {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return &Resolver{
		cfg:         cfg,
		uploader:    uploader,
		originalDir: originalDir,
		archiveDir:  archiveDir,
		httpClient:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		log:         log,
		sleep:       time.Sleep,
	}
}

// WithMirror attaches the mirror bucket.
func (r *Resolver) WithMirror(client storage.Client, bucket string) *Resolver {
	r.mirror = client
	r.bucket = bucket
	return r
}

// SetSleep replaces the poll sleep. Tests only.
func (r *Resolver) SetSleep(sleep func(time.Duration)) {
	r.sleep = sleep
}

// Upload resolves and uploads one media reference and returns the attachment
// id, blocking until the server reports the attachment ready.
func (r *Resolver) Upload(ctx context.Context, mediaID, filename string) (string, error) {
	name := mediaID + "-" + filename
	original := filepath.Join(r.originalDir, name)

	if _, err := os.Stat(original); os.IsNotExist(err) {
		if err := r.fetchOriginal(ctx, name, filename, original); err != nil {
			return "", err
		}
	}

	uploadPath := original
	if _, err := os.Stat(uploadPath); os.IsNotExist(err) {
		uploadPath = filepath.Join(r.archiveDir, name)
		if _, err := os.Stat(uploadPath); os.IsNotExist(err) {
			return "", fmt.Errorf("no media available for %s %s", mediaID, filename)
		}
	}

	data, err := os.ReadFile(uploadPath)
	if err != nil {
		return "", fmt.Errorf("failed to read media %s: %w", uploadPath, err)
	}
	contentType := mimetype.Detect(data).String()

	attachmentID, ready, err := r.uploader.UploadMedia(ctx, mediaID, filename, contentType, bytes.NewReader(data), "")
	if err != nil {
		return "", err
	}

	for !ready {
		r.log.Info("waiting for media processing",
			zap.String("media_id", mediaID),
			zap.String("attachment_id", attachmentID),
		)
		r.sleep(time.Duration(r.cfg.PollSeconds) * time.Second)
		ready, err = r.uploader.GetMedia(ctx, attachmentID)
		if err != nil {
			return "", err
		}
	}

	return attachmentID, nil
}

// fetchOriginal tries the mirror bucket, then the upstream full-resolution
// URL. A missing upstream original is tolerated; the caller falls back to the
// archive copy.
func (r *Resolver) fetchOriginal(ctx context.Context, name, filename, dest string) error {
	if r.mirror != nil {
		obj, err := r.mirror.GetObject(ctx, r.bucket, name, minio.GetObjectOptions{})
		if err == nil {
			data, readErr := io.ReadAll(obj)
			obj.Close()
			if readErr == nil && len(data) > 0 {
				return r.writeOriginal(dest, data)
			}
		}
	}

	url := fmt.Sprintf("%s/media/%s:orig", r.cfg.Host, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The upstream original is gone; the archive copy will have to do.
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := r.writeOriginal(dest, data); err != nil {
		return err
	}

	if r.mirror != nil {
		_, err := r.mirror.PutObject(ctx, r.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
		if err != nil {
			// The mirror is a cache; a failed write costs a refetch later.
			r.log.Warn("failed to mirror media original", zap.String("object", name), zap.Error(err))
		}
	}
	return nil
}

func (r *Resolver) writeOriginal(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write media original: %w", err)
	}
	return nil
}
