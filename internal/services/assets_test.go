package services

import (
	"context"
	"testing"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
)

type fakeBucket struct{}

func (fakeBucket) PublicURL(key string) string {
	return "https://assets.example.com/" + key
}

func (fakeBucket) ObjectExists(context.Context, string) (bool, error) { return true, nil }
func (fakeBucket) Close() error                                       { return nil }

func TestAssetResolver(t *testing.T) {
	r := NewAssetResolver(testLogger(t), fakeBucket{})

	cases := []struct {
		name string
		ref  string
		want string
	}{
		{"absolute https passthrough", "https://cdn.example.com/cow.png", "https://cdn.example.com/cow.png"},
		{"absolute http passthrough", "http://cdn.example.com/cow.png", "http://cdn.example.com/cow.png"},
		{"bare key resolves to bucket", "cow.png", "https://assets.example.com/cow.png"},
		{"empty ref stays empty", "", ""},
		{"whitespace ref stays empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(types.AssetRef(tc.ref)); got != tc.want {
				t.Fatalf("Resolve(%q): want=%q got=%q", tc.ref, tc.want, got)
			}
		})
	}
}

func TestAssetResolverWithoutBucket(t *testing.T) {
	r := NewAssetResolver(testLogger(t), nil)
	if got := r.Resolve("cow.png"); got != "cow.png" {
		t.Fatalf("bare ref without a bucket: want=%q got=%q", "cow.png", got)
	}
}
