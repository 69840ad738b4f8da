package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, err := iss.Issue("user-1", true)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "user-1" || !claims.IsAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue("user-1", false)

	other := NewIssuer("other", time.Hour)
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrong key to fail, got %v", err)
	}

	later := NewIssuer("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	if _, err := iss.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage to fail, got %v", err)
	}
}
