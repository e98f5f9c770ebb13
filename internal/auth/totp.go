package auth

import (
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

// AuthenticatorKey is a TOTP secret ready to be shown to the user.
type AuthenticatorKey struct {
	Secret    string
	URI       string // otpauth:// URI encoded in the QR code
	QRDataURI string // PNG QR code as a data: URI
}

// NewAuthenticatorKey generates a TOTP secret for account under issuer.
func NewAuthenticatorKey(issuer, account string) (*AuthenticatorKey, error) {
	return authenticatorKey(totp.GenerateOpts{Issuer: issuer, AccountName: account})
}

// AuthenticatorKeyFor rebuilds the key of a stored base32 secret, so the
// setup page can show the same QR code again.
func AuthenticatorKeyFor(issuer, account, secret string) (*AuthenticatorKey, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return authenticatorKey(totp.GenerateOpts{Issuer: issuer, AccountName: account, Secret: raw})
}

func authenticatorKey(opts totp.GenerateOpts) (*AuthenticatorKey, error) {
	key, err := totp.Generate(opts)
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}

	return &AuthenticatorKey{
		Secret:    key.Secret(),
		URI:       key.URL(),
		QRDataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ValidateTOTP checks a 6-digit authenticator code, ignoring spaces and
// dashes the user may have typed.
func ValidateTOTP(code, secret string) bool {
	code = strings.NewReplacer(" ", "", "-", "").Replace(code)
	return totp.Validate(code, secret)
}

// FormatSecret groups the secret in blocks of four lowercase characters for
// manual entry.
func FormatSecret(secret string) string {
	secret = strings.ToLower(secret)
	var b strings.Builder
	for i, r := range secret {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
