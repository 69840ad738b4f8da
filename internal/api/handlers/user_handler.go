package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/service"
)

// AuthService is implemented by service.AuthService.
type AuthService interface {
	SendOTP(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error
	SignUp(ctx context.Context, in service.SignUpInput) (*service.Session, error)
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	UpdateFCMToken(ctx context.Context, userID, token string) error
	UpdateUser(ctx context.Context, callerID string, callerAdmin bool, targetID string, in service.ProfileInput) (*models.User, error)
}

type UserHandler struct {
	svc    AuthService
	logger *slog.Logger
}

func NewUserHandler(svc AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type fcmRequest struct {
	FCMToken string `json:"fcmToken"`
}

// SendOTP handles POST /users/send-otp
func (h *UserHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.SendOTP(r.Context(), req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "otp_sent"})
}

// VerifyEmail handles POST /users/verify-email
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email_verified"})
}

// SignUp handles POST /users/signUp
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	session, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// SignIn handles POST /users/signIn
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	session, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UpdateFCMToken handles POST /users/updateFCMToken
func (h *UserHandler) UpdateFCMToken(w http.ResponseWriter, r *http.Request) {
	var req fcmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.UpdateFCMToken(r.Context(), caller(r).UserID, req.FCMToken); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "fcm_token_updated"})
}

// UpdateUser handles PUT /users/updateUser/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c := caller(r)
	u, err := h.svc.UpdateUser(r.Context(), c.UserID, c.IsAdmin, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
