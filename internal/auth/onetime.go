package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purposes for one-time codes.
const (
	PurposeConfirmEmail  = "confirm-email"
	PurposeResetPassword = "reset-password"
	PurposeTwoFactor     = "two-factor"
	PurposeVerifyPhone   = "verify-phone"
)

// Lifetimes for one-time codes.
const (
	ConfirmEmailTTL  = 24 * time.Hour
	ResetPasswordTTL = time.Hour
	TwoFactorTTL     = 5 * time.Minute
	VerifyPhoneTTL   = 10 * time.Minute
)

const otcKeyPrefix = "otc:"

// OneTimeCodes stores short-lived single-use codes in Valkey. A code is
// bound to a purpose and a subject (usually a user id); issuing a new one
// replaces the previous.
type OneTimeCodes struct {
	client *redis.Client
}

// NewOneTimeCodes returns a code store backed by client.
func NewOneTimeCodes(client *redis.Client) *OneTimeCodes {
	return &OneTimeCodes{client: client}
}

func otcKey(purpose, subject string) string {
	return otcKeyPrefix + purpose + ":" + subject
}

// Put stores value for purpose/subject with the given TTL. An optional
// payload is kept alongside and returned by Consume.
func (o *OneTimeCodes) Put(ctx context.Context, purpose, subject, value string, ttl time.Duration, payload string) error {
	err := o.client.HSet(ctx, otcKey(purpose, subject), "code", value, "payload", payload).Err()
	if err != nil {
		return fmt.Errorf("store one-time code: %w", err)
	}
	if err := o.client.Expire(ctx, otcKey(purpose, subject), ttl).Err(); err != nil {
		return fmt.Errorf("expire one-time code: %w", err)
	}
	return nil
}

// Consume checks value against the stored code and deletes it on a match.
// It returns the stored payload and whether the code matched.
func (o *OneTimeCodes) Consume(ctx context.Context, purpose, subject, value string) (string, bool, error) {
	key := otcKey(purpose, subject)
	fields, err := o.client.HGetAll(ctx, key).Result()
	if err != nil {
		return "", false, fmt.Errorf("load one-time code: %w", err)
	}
	stored, ok := fields["code"]
	if !ok || value == "" {
		return "", false, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(value)) != 1 {
		return "", false, nil
	}

	// Only the caller that deletes the key wins.
	n, err := o.client.Del(ctx, key).Result()
	if err != nil {
		return "", false, fmt.Errorf("consume one-time code: %w", err)
	}
	return fields["payload"], n == 1, nil
}
