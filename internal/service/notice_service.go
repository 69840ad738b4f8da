package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
	"github.com/Cheertaboi/mess-coupon-service/internal/repository"
)

type NoticeRepo interface {
	List(ctx context.Context) ([]models.Notice, error)
	Create(ctx context.Context, n *models.Notice) error
	Update(ctx context.Context, id string, in models.NoticeInput) (*models.Notice, error)
	Delete(ctx context.Context, id string) error
}

// TokenSource lists the push tokens notices are fanned out to.
type TokenSource interface {
	ListFCMTokens(ctx context.Context) ([]string, error)
}

type NoticeService struct {
	repo      NoticeRepo
	tokens    TokenSource
	publisher notify.Publisher
	logger    *slog.Logger
}

func NewNoticeService(repo NoticeRepo, tokens TokenSource, publisher notify.Publisher, logger *slog.Logger) *NoticeService {
	return &NoticeService{repo: repo, tokens: tokens, publisher: publisher, logger: logger}
}

func (s *NoticeService) List(ctx context.Context) ([]models.Notice, error) {
	return s.repo.List(ctx)
}

// Create stores the notice and asks for a push to every registered device.
// A failed push is logged; the notice stays.
func (s *NoticeService) Create(ctx context.Context, authorID string, in models.NoticeInput) (*models.Notice, error) {
	if err := in.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n := &models.Notice{
		ID:        uuid.NewString(),
		Subject:   in.Subject,
		Body:      in.Body,
		CreatedBy: authorID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	s.push(ctx, notify.RoutingNoticeCreated, n)
	return n, nil
}

func (s *NoticeService) Update(ctx context.Context, id string, in models.NoticeInput) (*models.Notice, error) {
	if err := in.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n, err := s.repo.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update notice: %w", err)
	}
	s.push(ctx, notify.RoutingNoticeUpdated, n)
	return n, nil
}

func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}

func (s *NoticeService) push(ctx context.Context, routingKey string, n *models.Notice) {
	tokens, err := s.tokens.ListFCMTokens(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list push tokens", "notice_id", n.ID, "error", err)
		return
	}
	event := notify.NoticeEvent{
		NoticeID:  n.ID,
		Subject:   n.Subject,
		Body:      n.Body,
		Tokens:    tokens,
		CreatedAt: n.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish notice", "notice_id", n.ID, "error", err)
	}
}
