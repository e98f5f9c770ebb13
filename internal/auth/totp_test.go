package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestNewAuthenticatorKey(t *testing.T) {
	key, err := NewAuthenticatorKey("webmvc", "alice@example.com")
	if err != nil {
		t.Fatalf("NewAuthenticatorKey: %v", err)
	}
	if key.Secret == "" {
		t.Error("empty secret")
	}
	if !strings.HasPrefix(key.URI, "otpauth://totp/") {
		t.Errorf("uri: got %q", key.URI)
	}
	if !strings.HasPrefix(key.QRDataURI, "data:image/png;base64,") {
		t.Errorf("qr: got prefix %q", key.QRDataURI[:30])
	}

	code, err := totp.GenerateCode(key.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if !ValidateTOTP(code[:3]+" "+code[3:], key.Secret) {
		t.Error("current code rejected")
	}
	if ValidateTOTP("000000x", key.Secret) {
		t.Error("garbage code accepted")
	}
}

func TestFormatSecret(t *testing.T) {
	if got := FormatSecret("ABCDEFGHIJ"); got != "abcd efgh ij" {
		t.Errorf("FormatSecret: got %q, want %q", got, "abcd efgh ij")
	}
}

func TestAuthenticatorKeyFor(t *testing.T) {
	orig, err := NewAuthenticatorKey("webmvc", "bob@example.com")
	if err != nil {
		t.Fatalf("NewAuthenticatorKey: %v", err)
	}
	again, err := AuthenticatorKeyFor("webmvc", "bob@example.com", orig.Secret)
	if err != nil {
		t.Fatalf("AuthenticatorKeyFor: %v", err)
	}
	if again.Secret != orig.Secret {
		t.Errorf("secret: got %q, want %q", again.Secret, orig.Secret)
	}
	if again.URI != orig.URI {
		t.Errorf("uri: got %q, want %q", again.URI, orig.URI)
	}

	if _, err := AuthenticatorKeyFor("webmvc", "bob@example.com", "not base32 !"); err == nil {
		t.Error("malformed secret accepted")
	}
}
