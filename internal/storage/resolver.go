// Package storage resolves stored object paths returned by the prediction
// backend into time-limited, publicly fetchable download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// SlotResult is the outcome of one resolution: a fetchable URL or the error
// that prevented it. Each slot fails independently.
type SlotResult struct {
	URL string
	Err error
}

// Resolved reports whether the slot carries a usable URL.
func (s SlotResult) Resolved() bool { return s.Err == nil && s.URL != "" }

// PairResult holds the two independent resolutions of a results view.
type PairResult struct {
	Original SlotResult
	Mask     SlotResult
}

// Resolver is the object-storage adapter contract consumed by the view layer.
type Resolver interface {
	ResolveDownloadURL(ctx context.Context, objectPath string) (string, error)
	ResolvePair(ctx context.Context, originalPath, maskPath string) PairResult
}

// signFunc matches (*gcs.BucketHandle).SignedURL; injectable for tests.
type signFunc func(object string, opts *gcs.SignedURLOptions) (string, error)

// SignedURLResolver issues V4 signed URLs for objects in a single bucket,
// optionally caching them in Redis for slightly less than their lifetime.
type SignedURLResolver struct {
	bucket string
	ttl    time.Duration
	cache  Cache // may be nil
	logger *zap.Logger
	sign   signFunc
}

// NewSignedURLResolver creates a resolver over the given bucket. cache may be
// nil to disable caching.
func NewSignedURLResolver(client *gcs.Client, bucket string, ttl time.Duration, cache Cache, logger *zap.Logger) *SignedURLResolver {
	if client == nil {
		panic("storage client is not initialized for SignedURLResolver")
	}
	handle := client.Bucket(bucket)
	return &SignedURLResolver{
		bucket: bucket,
		ttl:    ttl,
		cache:  cache,
		logger: logger,
		sign:   handle.SignedURL,
	}
}

// ResolveDownloadURL resolves one stored object path to a signed URL.
func (r *SignedURLResolver) ResolveDownloadURL(ctx context.Context, objectPath string) (string, error) {
	object, err := normalizeObjectPath(r.bucket, objectPath)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey(r.bucket, object)); err == nil {
			return cached, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("signed-url cache read failed", zap.String("object", object), zap.Error(err))
		}
	}

	signed, err := r.sign(object, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(r.ttl),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign download URL for %q: %w", object, err)
	}

	if r.cache != nil {
		// Expire the cache entry ahead of the URL so a hit is always usable.
		cacheTTL := r.ttl - time.Minute
		if cacheTTL > 0 {
			if err := r.cache.Set(ctx, cacheKey(r.bucket, object), signed, cacheTTL); err != nil {
				r.logger.Warn("signed-url cache write failed", zap.String("object", object), zap.Error(err))
			}
		}
	}
	return signed, nil
}

// ResolvePair resolves the original and mask paths concurrently. The two
// resolutions never block each other and each writes only its own slot, so a
// failure on one side leaves the other intact.
func (r *SignedURLResolver) ResolvePair(ctx context.Context, originalPath, maskPath string) PairResult {
	var result PairResult
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Original.URL, result.Original.Err = r.ResolveDownloadURL(ctx, originalPath)
	}()
	go func() {
		defer wg.Done()
		result.Mask.URL, result.Mask.Err = r.ResolveDownloadURL(ctx, maskPath)
	}()
	wg.Wait()

	if result.Original.Err != nil {
		r.logger.Warn("failed to resolve original image", zap.Error(result.Original.Err))
	}
	if result.Mask.Err != nil {
		r.logger.Warn("failed to resolve mask image", zap.Error(result.Mask.Err))
	}
	return result
}

func cacheKey(bucket, object string) string {
	return "signed-url:" + bucket + "/" + object
}

// normalizeObjectPath reduces the backend's URL forms to a bucket-relative
// object path. The backend returns full public blob URLs
// (https://storage.googleapis.com/<bucket>/<object>), while stored patient
// records and older payloads may carry gs:// URLs or bare paths.
func normalizeObjectPath(bucket, raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", errors.New("empty object path")
	}

	for _, prefix := range []string{
		"https://storage.googleapis.com/" + bucket + "/",
		"http://storage.googleapis.com/" + bucket + "/",
		"https://" + bucket + ".storage.googleapis.com/",
		"gs://" + bucket + "/",
	} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", fmt.Errorf("object path %q resolves to nothing", raw)
	}

	// Public blob URLs arrive percent-encoded.
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	return path, nil
}
