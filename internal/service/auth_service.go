package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xlzd/gotp"
	"golang.org/x/crypto/bcrypt"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
	"github.com/Cheertaboi/mess-coupon-service/internal/repository"
)

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, passwordHash string) (*models.User, error)
	UpdateFCMToken(ctx context.Context, id, token string) error
}

type OTPRepo interface {
	Upsert(ctx context.Context, email, secret string, issuedAt, expiresAt time.Time) error
	Get(ctx context.Context, email string) (*models.EmailOTP, error)
	RecordFailure(ctx context.Context, email string) (int, error)
	MarkVerified(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}

// TokenIssuer is satisfied by auth.Issuer.
type TokenIssuer interface {
	Issue(userID string, isAdmin bool) (string, error)
}

const (
	minPasswordLength = 6
	// maxOTPAttempts wrong codes discard the OTP; a new one must be sent.
	maxOTPAttempts = 5
)

// Session is what a successful sign-in returns to the client.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users     UserRepo
	otps      OTPRepo
	issuer    TokenIssuer
	publisher notify.Publisher
	logger    *slog.Logger
	otpTTL    time.Duration
	now       func() time.Time
}

func NewAuthService(users UserRepo, otps OTPRepo, issuer TokenIssuer, publisher notify.Publisher, logger *slog.Logger, otpTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		otps:      otps,
		issuer:    issuer,
		publisher: publisher,
		logger:    logger,
		otpTTL:    otpTTL,
		now:       time.Now,
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return email, nil
}

// SendOTP starts email verification for a new account.
func (s *AuthService) SendOTP(ctx context.Context, rawEmail string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	secret := gotp.RandomSecret(32)
	now := s.now()
	expires := now.Add(s.otpTTL)
	if err := s.otps.Upsert(ctx, email, secret, now, expires); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	code := gotp.NewDefaultTOTP(secret).At(now.Unix())
	if err := s.publisher.Publish(ctx, notify.RoutingEmailOTP, notify.OTPEvent{Email: email, Code: code, ExpiresAt: expires}); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	s.logger.InfoContext(ctx, "verification code sent", "email", email)
	return nil
}

// VerifyEmail accepts only the code mailed by SendOTP, until the OTP expires.
// After maxOTPAttempts wrong codes the OTP is discarded.
func (s *AuthService) VerifyEmail(ctx context.Context, rawEmail, code string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}
	otp, err := s.otps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("load otp: %w", err)
	}
	if s.now().After(otp.ExpiresAt) {
		return ErrInvalidOTP
	}
	if !gotp.NewDefaultTOTP(otp.Secret).Verify(strings.TrimSpace(code), otp.IssuedAt.Unix()) {
		return s.rejectCode(ctx, email)
	}
	if err := s.otps.MarkVerified(ctx, email); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *AuthService) rejectCode(ctx context.Context, email string) error {
	n, err := s.otps.RecordFailure(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("record otp failure: %w", err)
	}
	if n >= maxOTPAttempts {
		if err := s.otps.Delete(ctx, email); err != nil {
			return fmt.Errorf("discard otp: %w", err)
		}
		s.logger.WarnContext(ctx, "verification code discarded after failed attempts", "email", email, "attempts", n)
	}
	return ErrInvalidOTP
}

type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FCMToken string `json:"fcmToken"`
}

// SignUp creates an account for an email that passed VerifyEmail.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password too short", ErrInvalidInput)
	}

	otp, err := s.otps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEmailNotVerified
		}
		return nil, fmt.Errorf("load otp: %w", err)
	}
	if !otp.Verified {
		return nil, ErrEmailNotVerified
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		FCMToken:     strings.TrimSpace(in.FCMToken),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.otps.Delete(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "failed to clear otp", "email", email, "error", err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", u.ID)
	return s.session(u)
}

// SignIn checks the password and issues a token.
func (s *AuthService) SignIn(ctx context.Context, rawEmail, password string) (*Session, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := s.issuer.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func (s *AuthService) UpdateFCMToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: fcmToken is required", ErrInvalidInput)
	}
	if err := s.users.UpdateFCMToken(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

type ProfileInput struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

// UpdateUser changes a profile. Only the owner or an admin may do so.
func (s *AuthService) UpdateUser(ctx context.Context, callerID string, callerAdmin bool, targetID string, in ProfileInput) (*models.User, error) {
	if callerID != targetID && !callerAdmin {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	var hash string
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: password too short", ErrInvalidInput)
		}
		b, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}
	u, err := s.users.UpdateProfile(ctx, targetID, name, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
