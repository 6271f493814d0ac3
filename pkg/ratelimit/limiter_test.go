package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(60, time.Minute, 3)

	// Test initial burst
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	// Test reset
	tb.Reset()
	if !tb.Allow() {
		t.Error("Expected tokens to be available after reset")
	}
}

func TestTokenBucketWait(t *testing.T) {
	// 20 per second, burst 1: the second Wait has to sleep ~50ms
	tb := NewTokenBucket(20, time.Second, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Expected Wait to block, took %v", elapsed)
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour, 1)
	tb.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail when the context expires first")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(0, 1).(NoLimit); !ok {
		t.Error("Expected a zero rate to disable limiting")
	}
	if _, ok := New(30, 0).(*TokenBucket); !ok {
		t.Error("Expected a positive rate to build a token bucket")
	}
}

func TestNoLimit(t *testing.T) {
	var l NoLimit
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("NoLimit must always allow")
		}
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Expected cancelled context to surface")
	}
}
