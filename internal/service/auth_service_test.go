package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xlzd/gotp"
	"golang.org/x/crypto/bcrypt"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
	"github.com/Cheertaboi/mess-coupon-service/internal/repository"
)

type userRepoStub struct {
	users map[string]*models.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: map[string]*models.User{}}
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *userRepoStub) UpdateProfile(ctx context.Context, id, name, passwordHash string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Name = name
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	cp := *u
	return &cp, nil
}

func (s *userRepoStub) UpdateFCMToken(ctx context.Context, id, token string) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FCMToken = token
	return nil
}

type otpRepoStub struct {
	otps map[string]*models.EmailOTP
}

func (s *otpRepoStub) Upsert(ctx context.Context, email, secret string, issuedAt, expiresAt time.Time) error {
	s.otps[email] = &models.EmailOTP{Email: email, Secret: secret, IssuedAt: issuedAt, ExpiresAt: expiresAt}
	return nil
}

func (s *otpRepoStub) RecordFailure(ctx context.Context, email string) (int, error) {
	o, ok := s.otps[email]
	if !ok {
		return 0, repository.ErrNotFound
	}
	o.Attempts++
	return o.Attempts, nil
}

func (s *otpRepoStub) Get(ctx context.Context, email string) (*models.EmailOTP, error) {
	o, ok := s.otps[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *otpRepoStub) MarkVerified(ctx context.Context, email string) error {
	s.otps[email].Verified = true
	return nil
}

func (s *otpRepoStub) Delete(ctx context.Context, email string) error {
	delete(s.otps, email)
	return nil
}

type issuerStub struct{}

func (issuerStub) Issue(userID string, isAdmin bool) (string, error) {
	if isAdmin {
		return "admin-token-" + userID, nil
	}
	return "token-" + userID, nil
}

type authFixture struct {
	svc   *AuthService
	users *userRepoStub
	otps  *otpRepoStub
	pub   *publisherStub
	now   time.Time
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users: newUserRepoStub(),
		otps:  &otpRepoStub{otps: map[string]*models.EmailOTP{}},
		pub:   &publisherStub{},
		now:   time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.users, f.otps, issuerStub{}, f.pub, discardLogger(), 10*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *authFixture) sentCode(t *testing.T) string {
	t.Helper()
	if len(f.pub.events) == 0 || f.pub.events[len(f.pub.events)-1].key != notify.RoutingEmailOTP {
		t.Fatalf("expected an otp event, got %v", f.pub.keys())
	}
	return f.pub.events[len(f.pub.events)-1].body.(notify.OTPEvent).Code
}

func TestSignUpFlow(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SendOTP(ctx, " Student@Campus.edu "); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	code := f.sentCode(t)

	in := SignUpInput{Name: "Asha", Email: "student@campus.edu", Password: "secret123"}
	if _, err := f.svc.SignUp(ctx, in); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected %v before verification, got %v", ErrEmailNotVerified, err)
	}

	f.now = f.now.Add(45 * time.Second)
	if err := f.svc.VerifyEmail(ctx, "student@campus.edu", code); err != nil {
		t.Fatalf("expected code to verify, got %v", err)
	}

	session, err := f.svc.SignUp(ctx, in)
	if err != nil {
		t.Fatalf("expected sign up, got %v", err)
	}
	if session.Token != "token-"+session.User.ID || session.User.Email != "student@campus.edu" {
		t.Fatalf("unexpected session %+v", session)
	}
	if _, ok := f.otps.otps["student@campus.edu"]; ok {
		t.Fatalf("expected otp to be cleared after sign up")
	}

	if err := f.svc.SendOTP(ctx, "student@campus.edu"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected %v, got %v", ErrEmailTaken, err)
	}
}

func TestVerifyEmailRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong code", func(t *testing.T) {
		f := newAuthFixture()
		if err := f.svc.SendOTP(ctx, "a@b.co"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		wrong := otherCode(f.sentCode(t), "000000", "111111")
		if err := f.svc.VerifyEmail(ctx, "a@b.co", wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("expected %v, got %v", ErrInvalidOTP, err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		f := newAuthFixture()
		if err := f.svc.SendOTP(ctx, "a@b.co"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		code := f.sentCode(t)
		f.now = f.now.Add(11 * time.Minute)
		if err := f.svc.VerifyEmail(ctx, "a@b.co", code); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("expected %v, got %v", ErrInvalidOTP, err)
		}
	})

	t.Run("never sent", func(t *testing.T) {
		f := newAuthFixture()
		if err := f.svc.VerifyEmail(ctx, "a@b.co", "123456"); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("expected %v, got %v", ErrInvalidOTP, err)
		}
	})

	t.Run("bad email", func(t *testing.T) {
		f := newAuthFixture()
		if err := f.svc.SendOTP(ctx, "not-an-email"); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected %v, got %v", ErrInvalidInput, err)
		}
	})
}

// otherCode returns a code that differs from code.
func otherCode(code string, candidates ...string) string {
	for _, c := range candidates {
		if c != code {
			return c
		}
	}
	return "999999"
}

func TestVerifyEmailAcceptsOnlyMailedCode(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	if err := f.svc.SendOTP(ctx, "a@b.co"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	code := f.sentCode(t)
	totp := gotp.NewDefaultTOTP(f.otps.otps["a@b.co"].Secret)

	// Codes for the steps either side of the mailed one, as a guesser
	// walking the validity window would try.
	f.now = f.now.Add(5 * time.Minute)
	issued := f.otps.otps["a@b.co"].IssuedAt
	neighbours := []string{
		totp.At(issued.Add(-30 * time.Second).Unix()),
		totp.At(issued.Add(30 * time.Second).Unix()),
		totp.At(f.now.Unix()),
	}
	for _, c := range neighbours {
		if c == code {
			continue
		}
		if err := f.svc.VerifyEmail(ctx, "a@b.co", c); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("expected %v for code %s, got %v", ErrInvalidOTP, c, err)
		}
	}

	if err := f.svc.VerifyEmail(ctx, "a@b.co", code); err != nil {
		t.Fatalf("expected mailed code to verify, got %v", err)
	}
	if !f.otps.otps["a@b.co"].Verified {
		t.Fatalf("expected otp to be verified")
	}
}

func TestVerifyEmailDiscardsAfterFailedAttempts(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	if err := f.svc.SendOTP(ctx, "a@b.co"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	code := f.sentCode(t)
	wrong := otherCode(code, "000000", "111111")

	for i := 1; i < maxOTPAttempts; i++ {
		if err := f.svc.VerifyEmail(ctx, "a@b.co", wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d: expected %v, got %v", i, ErrInvalidOTP, err)
		}
	}
	if got := f.otps.otps["a@b.co"].Attempts; got != maxOTPAttempts-1 {
		t.Fatalf("expected %d attempts, got %d", maxOTPAttempts-1, got)
	}

	if err := f.svc.VerifyEmail(ctx, "a@b.co", wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected %v, got %v", ErrInvalidOTP, err)
	}
	if _, ok := f.otps.otps["a@b.co"]; ok {
		t.Fatalf("expected otp to be discarded after %d misses", maxOTPAttempts)
	}
	if err := f.svc.VerifyEmail(ctx, "a@b.co", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected mailed code to be dead, got %v", err)
	}

	if err := f.svc.SendOTP(ctx, "a@b.co"); err != nil {
		t.Fatalf("expected resend, got %v", err)
	}
	if err := f.svc.VerifyEmail(ctx, "a@b.co", f.sentCode(t)); err != nil {
		t.Fatalf("expected fresh code to verify, got %v", err)
	}
}

func seedUser(t *testing.T, f *authFixture, id, email, password string, admin bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("expected hash, got %v", err)
	}
	f.users.users[id] = &models.User{ID: id, Name: "User " + id, Email: email, PasswordHash: string(hash), IsAdmin: admin}
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture()
	seedUser(t, f, "u1", "a@b.co", "secret123", false)
	seedUser(t, f, "adm", "admin@b.co", "adminpass", true)
	ctx := context.Background()

	session, err := f.svc.SignIn(ctx, "A@B.co", "secret123")
	if err != nil {
		t.Fatalf("expected sign in, got %v", err)
	}
	if session.Token != "token-u1" {
		t.Fatalf("expected token-u1, got %s", session.Token)
	}

	session, err = f.svc.SignIn(ctx, "admin@b.co", "adminpass")
	if err != nil || session.Token != "admin-token-adm" {
		t.Fatalf("expected admin token, got %v %v", session, err)
	}

	if _, err := f.svc.SignIn(ctx, "a@b.co", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected %v, got %v", ErrInvalidCredentials, err)
	}
	if _, err := f.svc.SignIn(ctx, "nobody@b.co", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected %v, got %v", ErrInvalidCredentials, err)
	}
}

func TestUpdateUser(t *testing.T) {
	f := newAuthFixture()
	seedUser(t, f, "u1", "a@b.co", "secret123", false)
	seedUser(t, f, "u2", "c@d.co", "secret123", false)
	ctx := context.Background()

	if _, err := f.svc.UpdateUser(ctx, "u2", false, "u1", ProfileInput{Name: "Mallory"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected %v, got %v", ErrForbidden, err)
	}

	u, err := f.svc.UpdateUser(ctx, "u1", false, "u1", ProfileInput{Name: " Asha ", Password: "newpass1"})
	if err != nil {
		t.Fatalf("expected update, got %v", err)
	}
	if u.Name != "Asha" {
		t.Fatalf("expected trimmed name, got %q", u.Name)
	}
	if _, err := f.svc.SignIn(ctx, "a@b.co", "newpass1"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}

	if _, err := f.svc.UpdateUser(ctx, "adm", true, "u1", ProfileInput{Name: "By Admin"}); err != nil {
		t.Fatalf("expected admin update, got %v", err)
	}
	if _, err := f.svc.UpdateUser(ctx, "adm", true, "ghost", ProfileInput{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected %v, got %v", ErrNotFound, err)
	}
	if _, err := f.svc.UpdateUser(ctx, "u1", false, "u1", ProfileInput{Name: "x", Password: "123"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected %v, got %v", ErrInvalidInput, err)
	}
}

func TestUpdateFCMToken(t *testing.T) {
	f := newAuthFixture()
	seedUser(t, f, "u1", "a@b.co", "secret123", false)

	if err := f.svc.UpdateFCMToken(context.Background(), "u1", " device-1 "); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.users.users["u1"].FCMToken != "device-1" {
		t.Fatalf("expected stored token, got %q", f.users.users["u1"].FCMToken)
	}
	if err := f.svc.UpdateFCMToken(context.Background(), "u1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected %v, got %v", ErrInvalidInput, err)
	}
}
