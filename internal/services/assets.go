package services

import (
	"strings"

	"github.com/sproutspeech/adventure-backend/internal/clients/gcp"
	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// AssetResolver turns stored asset identifiers into URLs a device can load.
type AssetResolver interface {
	Resolve(ref types.AssetRef) string
}

type assetResolver struct {
	log    *logger.Logger
	bucket gcp.BucketClient
}

func NewAssetResolver(baseLog *logger.Logger, bucket gcp.BucketClient) AssetResolver {
	return &assetResolver{
		log:    baseLog.With("service", "AssetResolver"),
		bucket: bucket,
	}
}

// Resolve passes absolute URLs through unchanged; bare identifiers become
// public object URLs in the assets bucket. Without a bucket configured the
// identifier is returned as-is so local content still renders.
func (r *assetResolver) Resolve(ref types.AssetRef) string {
	s := strings.TrimSpace(string(ref))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if r.bucket == nil {
		return s
	}
	return r.bucket.PublicURL(s)
}
