package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, otcKeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestOneTimeCodeConsume(t *testing.T) {
	codes := NewOneTimeCodes(testValkeyClient(t))
	ctx := context.Background()

	if err := codes.Put(ctx, PurposeVerifyPhone, "u1", "123456", time.Minute, "+40700000000"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, ok, err := codes.Consume(ctx, PurposeVerifyPhone, "u1", "654321"); err != nil || ok {
		t.Errorf("wrong code: ok=%v err=%v", ok, err)
	}

	payload, ok, err := codes.Consume(ctx, PurposeVerifyPhone, "u1", "123456")
	if err != nil || !ok {
		t.Fatalf("right code: ok=%v err=%v", ok, err)
	}
	if payload != "+40700000000" {
		t.Errorf("payload: got %q, want %q", payload, "+40700000000")
	}

	if _, ok, _ := codes.Consume(ctx, PurposeVerifyPhone, "u1", "123456"); ok {
		t.Error("code accepted twice")
	}
}

func TestOneTimeCodeScopedByPurpose(t *testing.T) {
	codes := NewOneTimeCodes(testValkeyClient(t))
	ctx := context.Background()

	if err := codes.Put(ctx, PurposeTwoFactor, "u2", "111111", time.Minute, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := codes.Consume(ctx, PurposeResetPassword, "u2", "111111"); ok {
		t.Error("code accepted for another purpose")
	}
	if _, ok, _ := codes.Consume(ctx, PurposeTwoFactor, "u2", "111111"); !ok {
		t.Error("code rejected for its own purpose")
	}
}

func TestOneTimeCodeExpires(t *testing.T) {
	client := testValkeyClient(t)
	codes := NewOneTimeCodes(client)
	ctx := context.Background()

	if err := codes.Put(ctx, PurposeTwoFactor, "u3", "222222", time.Minute, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ttl, err := client.TTL(ctx, otcKey(PurposeTwoFactor, "u3")).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl: got %v (%v)", ttl, err)
	}
}
