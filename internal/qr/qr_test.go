package qr

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

func TestSealOpen(t *testing.T) {
	s, err := NewSealer("messySecureqrSecret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	in := Payload{UserID: "u-1", DayIndex: 3, MealType: models.Lunch, WeekStart: "2024-01-01"}

	token, err := s.Seal(in)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	out, err := s.Open(token)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if out != in {
		t.Fatalf("Open() = %+v, want %+v", out, in)
	}

	other, _ := s.Seal(in)
	if other == token {
		t.Fatal("expected a fresh nonce per seal")
	}
}

func TestOpenRejectsForeignAndTampered(t *testing.T) {
	s, _ := NewSealer("secret-a")
	foreign, _ := NewSealer("secret-b")

	token, err := foreign.Seal(Payload{UserID: "u-1", DayIndex: 0, MealType: models.Breakfast})
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	cases := map[string]string{
		"foreign key": token,
		"not base64":  "%%%",
		"too short":   "AAAA",
		"plain json":  `{"userId":"u-1","dayIndex":0,"mealType":0}`,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Open(tok); !errors.Is(err, ErrInvalidCode) {
				t.Fatalf("expected ErrInvalidCode, got %v", err)
			}
		})
	}
}

func TestSealValidatesPayload(t *testing.T) {
	s, _ := NewSealer("secret")
	bad := []Payload{
		{DayIndex: 0, MealType: models.Dinner},
		{UserID: "u", DayIndex: 7},
		{UserID: "u", MealType: models.MealSlot(5)},
	}
	for _, p := range bad {
		if _, err := s.Seal(p); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected %+v to be rejected, got %v", p, err)
		}
	}
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG("token", 128)
	if err != nil {
		t.Fatalf("RenderPNG() error = %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("expected PNG signature")
	}
}
