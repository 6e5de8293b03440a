package httpmiddleware

import (
	"context"
	"testing"
)

func TestTokenBucketExhausts(t *testing.T) {
	l := NewTokenBucket(3, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("bucket should be empty")
	}
}

func TestTokenBucketIsolatesKeys(t *testing.T) {
	l := NewTokenBucket(1, 1)
	ctx := context.Background()

	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("first key should be allowed")
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("first key should be exhausted")
	}
	if !l.Allow(ctx, "5.6.7.8") {
		t.Fatal("second key must have its own bucket")
	}
}

func TestTokenBucketDefaultsCapacity(t *testing.T) {
	l := NewTokenBucket(0, 10)
	if l.capacity != 10 {
		t.Fatalf("expected capacity to default to rate, got %d", l.capacity)
	}
}
