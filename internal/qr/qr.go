// Package qr seals meal redemption payloads and renders them as QR images.
package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/hkdf"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

// Payload identifies one meal a user wants to redeem.
type Payload struct {
	UserID   string          `json:"userId"`
	DayIndex int             `json:"dayIndex"`
	MealType models.MealSlot `json:"mealType"`
	// WeekStart pins the code to one coupon week (YYYY-MM-DD).
	WeekStart string `json:"weekStart"`
}

var ErrInvalidCode = errors.New("invalid qr code")

func (p Payload) validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidCode)
	}
	if p.DayIndex < 0 || p.DayIndex >= models.DaysPerWeek {
		return fmt.Errorf("%w: day index %d out of range", ErrInvalidCode, p.DayIndex)
	}
	if !p.MealType.Valid() {
		return fmt.Errorf("%w: meal type %d out of range", ErrInvalidCode, p.MealType)
	}
	return nil
}

// Sealer encrypts payloads so scanners can trust what they read.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256-GCM key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("qr secret is empty")
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("mess-coupon-qr"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns a URL-safe token carrying p.
func (s *Sealer) Seal(p Payload) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	plain, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Tampered or foreign tokens fail with ErrInvalidCode.
func (s *Sealer) Open(token string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: not base64", ErrInvalidCode)
	}
	ns := s.aead.NonceSize()
	if len(raw) <= ns {
		return Payload{}, fmt.Errorf("%w: too short", ErrInvalidCode)
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: authentication failed", ErrInvalidCode)
	}
	var p Payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// RenderPNG draws token as a QR code of size x size pixels.
func RenderPNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	q, err := qrcode.New(token, qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return q.PNG(size)
}
