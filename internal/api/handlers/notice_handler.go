package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

// NoticeService is implemented by service.NoticeService.
type NoticeService interface {
	List(ctx context.Context) ([]models.Notice, error)
	Create(ctx context.Context, authorID string, in models.NoticeInput) (*models.Notice, error)
	Update(ctx context.Context, id string, in models.NoticeInput) (*models.Notice, error)
	Delete(ctx context.Context, id string) error
}

type NoticeHandler struct {
	svc    NoticeService
	logger *slog.Logger
}

func NewNoticeHandler(svc NoticeService, logger *slog.Logger) *NoticeHandler {
	return &NoticeHandler{svc: svc, logger: logger}
}

func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	notices, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NoticeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	n, err := h.svc.Create(r.Context(), caller(r).UserID, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.NoticeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	n, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notice_deleted"})
}
