package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unique", err: &pq.Error{Code: "23505"}, want: true},
		{name: "wrapped unique", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), want: true},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Fatalf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDateIn(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got := dateIn(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), loc)
	want := time.Date(2024, 1, 8, 0, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Fatalf("dateIn() = %v, want %v", got, want)
	}
	if s := dateString(want); s != "2024-01-08" {
		t.Fatalf("dateString() = %q", s)
	}
}
