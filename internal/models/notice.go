package models

import (
	"errors"
	"strings"
	"time"
)

type Notice struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NoticeInput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var ErrInvalidNotice = errors.New("subject and body cannot be empty")

func (in *NoticeInput) Normalize() error {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(in.Body)
	if in.Subject == "" || in.Body == "" {
		return ErrInvalidNotice
	}
	return nil
}
