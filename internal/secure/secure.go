// Package secure encrypts short personal values such as phone numbers
// before they are stored. Values are AES-256-CBC encrypted with PKCS#7
// padding under a fixed key and IV, and encoded as standard base64.
package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidCiphertext is returned when a value cannot be decrypted.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Cipher encrypts and decrypts strings with one key/IV pair.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// New returns a Cipher for a 32-byte key and a 16-byte IV.
func New(key, iv string) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("encryption iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	return &Cipher{block: block, iv: []byte(iv)}, nil
}

// Encrypt returns the base64 ciphertext of plain.
func (c *Cipher) Encrypt(plain string) string {
	data := pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrInvalidCiphertext
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return b[:len(b)-n], nil
}

// MaskPhone hides all but the last three digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 3 {
		return phone
	}
	return string(bytes.Repeat([]byte{'*'}, len(phone)-3)) + phone[len(phone)-3:]
}
