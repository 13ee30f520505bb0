package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCache is an in-memory Cache for resolver tests.
type fakeCache struct {
	entries map[string]string
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	v, ok := f.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.entries[key] = value
	f.sets++
	return nil
}

func (f *fakeCache) Close() error { return nil }

func newTestResolver(bucket string, cache Cache, sign signFunc) *SignedURLResolver {
	return &SignedURLResolver{
		bucket: bucket,
		ttl:    15 * time.Minute,
		cache:  cache,
		logger: zap.NewNop(),
		sign:   sign,
	}
}

func TestResolveDownloadURLSignsNormalizedObject(t *testing.T) {
	var signedObject string
	var gotOpts *gcs.SignedURLOptions
	r := newTestResolver("procare-images", nil, func(object string, opts *gcs.SignedURLOptions) (string, error) {
		signedObject = object
		gotOpts = opts
		return "https://signed.example/" + object, nil
	})

	url, err := r.ResolveDownloadURL(context.Background(),
		"https://storage.googleapis.com/procare-images/scans/uid-1/orig.jpg")
	require.NoError(t, err)

	assert.Equal(t, "scans/uid-1/orig.jpg", signedObject)
	assert.Equal(t, "https://signed.example/scans/uid-1/orig.jpg", url)
	assert.Equal(t, "GET", gotOpts.Method)
	assert.Equal(t, gcs.SigningSchemeV4, gotOpts.Scheme)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), gotOpts.Expires, 5*time.Second)
}

func TestResolveDownloadURLCacheHitSkipsSigning(t *testing.T) {
	cache := newFakeCache()
	cache.entries[cacheKey("procare-images", "scans/a.jpg")] = "https://cached.example/a"

	signCalls := 0
	r := newTestResolver("procare-images", cache, func(object string, opts *gcs.SignedURLOptions) (string, error) {
		signCalls++
		return "https://signed.example/" + object, nil
	})

	url, err := r.ResolveDownloadURL(context.Background(), "scans/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cached.example/a", url)
	assert.Zero(t, signCalls)
}

func TestResolveDownloadURLCacheMissSignsAndStores(t *testing.T) {
	cache := newFakeCache()
	r := newTestResolver("procare-images", cache, func(object string, opts *gcs.SignedURLOptions) (string, error) {
		return "https://signed.example/" + object, nil
	})

	url, err := r.ResolveDownloadURL(context.Background(), "scans/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/scans/b.jpg", url)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, url, cache.entries[cacheKey("procare-images", "scans/b.jpg")])
}

func TestResolvePairFailuresAreIndependent(t *testing.T) {
	r := newTestResolver("procare-images", nil, func(object string, opts *gcs.SignedURLOptions) (string, error) {
		if object == "scans/broken.jpg" {
			return "", errors.New("signing key unavailable")
		}
		return "https://signed.example/" + object, nil
	})

	pair := r.ResolvePair(context.Background(), "scans/ok.jpg", "scans/broken.jpg")

	assert.True(t, pair.Original.Resolved())
	assert.Equal(t, "https://signed.example/scans/ok.jpg", pair.Original.URL)
	assert.False(t, pair.Mask.Resolved())
	assert.Error(t, pair.Mask.Err)
}

func TestNormalizeObjectPath(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"public url", "https://storage.googleapis.com/bkt/scans/a.jpg", "scans/a.jpg", false},
		{"http public url", "http://storage.googleapis.com/bkt/scans/a.jpg", "scans/a.jpg", false},
		{"virtual host url", "https://bkt.storage.googleapis.com/scans/a.jpg", "scans/a.jpg", false},
		{"gs url", "gs://bkt/scans/a.jpg", "scans/a.jpg", false},
		{"bare path", "scans/a.jpg", "scans/a.jpg", false},
		{"leading slash", "/scans/a.jpg", "scans/a.jpg", false},
		{"percent encoded", "https://storage.googleapis.com/bkt/scans/Jane%20Roe.jpg", "scans/Jane Roe.jpg", false},
		{"other bucket untouched", "https://storage.googleapis.com/other/scans/a.jpg", "https://storage.googleapis.com/other/scans/a.jpg", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"prefix only", "gs://bkt/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeObjectPath("bkt", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
