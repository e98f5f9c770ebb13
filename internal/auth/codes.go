package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// RecoveryCodeCount is how many recovery codes are generated at a time.
const RecoveryCodeCount = 5

// recoveryAlphabet omits characters that are easy to misread.
const recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// GenerateRecoveryCodes returns n codes formatted as XXXXX-XXXXX.
func GenerateRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	for len(codes) < n {
		s, err := randomString(recoveryAlphabet, 10)
		if err != nil {
			return nil, fmt.Errorf("generate recovery code: %w", err)
		}
		codes = append(codes, s[:5]+"-"+s[5:])
	}
	return codes, nil
}

// NormalizeRecoveryCode uppercases a user-entered code and restores the
// dash when it was left out.
func NormalizeRecoveryCode(code string) string {
	code = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
	if len(code) == 10 && !strings.Contains(code, "-") {
		code = code[:5] + "-" + code[5:]
	}
	return code
}

// GenerateNumericCode returns a random code of the given number of digits.
func GenerateNumericCode(digits int) (string, error) {
	s, err := randomString("0123456789", digits)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return s, nil
}

// GenerateToken returns a random URL-safe token for mailed links.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSigningKey returns a random base64 key suitable for JWT_SECRET.
func GenerateSigningKey() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
