package db

import (
	"context"
	"testing"
)

func TestNewPostgresPool_BadURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "postgres://user@localhost:notaport/db"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "http://localhost:6379"); err == nil {
		t.Fatal("expected parse error for non-redis scheme")
	}
}
