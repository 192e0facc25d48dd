// Package qrtoken encrypts fuel transaction payloads into the opaque string
// carried by the QR code a pump scans. Tokens are AES-256-CBC encrypted and
// expire one hour after issue regardless of what the database says.
package qrtoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
)

// DefaultValidity is how long a token stays decodable after issue when no
// window is configured.
const DefaultValidity = time.Hour

// ErrInvalidToken covers malformed input, a wrong key and corrupted
// ciphertext alike, so a scanner learns nothing from the failure mode.
var ErrInvalidToken = errors.New("invalid QR code")

// ErrExpired reports a token issued longer ago than the validity window.
var ErrExpired = errors.New("QR code has expired")

// Payload is the transaction summary sealed inside the token. Timestamp is
// the issue instant in unix milliseconds.
type Payload struct {
	TransactionID string    `json:"transactionId"`
	DriverID      uuid.UUID `json:"driverId"`
	FuelCardID    uuid.UUID `json:"fuelCardId"`
	Amount        float64   `json:"amount"`
	VehicleNumber string    `json:"vehicleNumber"`
	Timestamp     int64     `json:"timestamp"`
}

// Codec seals and opens QR payloads with a fixed secret.
type Codec struct {
	key      []byte
	validity time.Duration
	clock    clock.Clock
}

// NewCodec derives the cipher key from the configured secret: the first 32
// bytes, right-padded with '0' when the secret is shorter. A non-positive
// validity falls back to DefaultValidity.
func NewCodec(secret string, validity time.Duration, clk clock.Clock) *Codec {
	if len(secret) > 32 {
		secret = secret[:32]
	}
	if len(secret) < 32 {
		secret = secret + strings.Repeat("0", 32-len(secret))
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Codec{key: []byte(secret), validity: validity, clock: clk}
}

// Validity is the freshness window applied to decoded tokens.
func (c *Codec) Validity() time.Duration {
	return c.validity
}

// Encode seals the payload, stamping it with the current time. The output
// format is hex(iv):hex(ciphertext) with a fresh random IV per call.
func (c *Codec) Encode(payload Payload) (string, error) {
	payload.Timestamp = c.clock.Now().UnixMilli()

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR payload: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialise cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decode opens a token and checks its freshness. The freshness check uses
// the sealed issue timestamp, independent of any stored expiry.
func (c *Codec) Decode(token string) (*Payload, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return nil, ErrInvalidToken
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return nil, ErrInvalidToken
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidToken
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, ErrInvalidToken
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, ok := pkcs7Unpad(plaintext, aes.BlockSize)
	if !ok {
		return nil, ErrInvalidToken
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, ErrInvalidToken
	}

	issued := time.UnixMilli(payload.Timestamp)
	if c.clock.Now().Sub(issued) > c.validity {
		return nil, ErrExpired
	}
	return &payload, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, false
		}
	}
	return data[:len(data)-padding], true
}
