package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/sproutspeech/adventure-backend/internal/platform/envutil"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// BucketClient fronts the assets bucket that lesson images, videos and
// pre-recorded narration live in.
type BucketClient interface {
	PublicURL(key string) string
	ObjectExists(ctx context.Context, key string) (bool, error)
	Close() error
}

type bucketClient struct {
	log    *logger.Logger
	client *storage.Client

	bucket  string
	baseURL string
}

func NewBucketClient(log *logger.Logger) (BucketClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	bucket := envutil.Str("ASSETS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("missing ASSETS_BUCKET")
	}
	baseURL := strings.TrimRight(envutil.Str("ASSETS_PUBLIC_BASE_URL", "https://storage.googleapis.com"), "/")

	client, err := storage.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &bucketClient{
		log:     log.With("client", "BucketClient"),
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

func (b *bucketClient) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", b.baseURL, b.bucket, url.PathEscape(key))
}

func (b *bucketClient) ObjectExists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := b.client.Bucket(b.bucket).Object(strings.TrimLeft(key, "/")).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *bucketClient) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
