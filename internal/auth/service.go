package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

const maxOTPAttempts = 5

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]+$`)

// Mailer delivers the password reset emails.
type Mailer interface {
	SendOTP(ctx context.Context, to, username, code string, validFor time.Duration) error
	SendPasswordChanged(ctx context.Context, to, username string) error
}

// RegistrationHook runs after a user row exists. A hook error rolls the registration back.
type RegistrationHook interface {
	OnRegistered(ctx context.Context, user User, req RegisterRequest) error
}

// Options tunes Service.
type Options struct {
	OTPTTL time.Duration
	Hooks  []RegistrationHook
	Logger *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
	store  TokenStore
	mailer Mailer
	hooks  []RegistrationHook
	otpTTL time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, store TokenStore, mailer Mailer, opts Options) *Service {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		store:  store,
		mailer: mailer,
		hooks:  opts.Hooks,
		otpTTL: opts.OTPTTL,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// AddHook appends a registration hook. It must be called before serving requests.
func (s *Service) AddHook(h RegistrationHook) {
	s.hooks = append(s.hooks, h)
}

// Register creates a user in one group.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if !usernamePattern.MatchString(req.Username) {
		return nil, fmt.Errorf("%w: username may contain letters, digits and @.+-_ only", httpx.ErrValidation)
	}
	if req.GroupName == shared.GroupEmployee && req.CompanyID <= 0 {
		return nil, ErrCompanyRequired
	}
	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	user, err := s.repo.Create(ctx, User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Groups:       []string{req.GroupName},
	})
	if err != nil {
		return nil, err
	}
	for _, hook := range s.hooks {
		if err := hook.OnRegistered(ctx, *user, req); err != nil {
			if derr := s.repo.Delete(ctx, user.ID); derr != nil {
				s.logger.Error("rollback registration", slog.Int64("user_id", user.ID), slog.Any("error", derr))
			}
			return nil, fmt.Errorf("register: %w", err)
		}
	}
	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("group", req.GroupName))
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TouchLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return &LoginResponse{TokenPair: pair, User: *user}, nil
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Refresh exchanges a refresh token for a new access token. Groups are re-read so
// membership changes take effect on refresh.
func (s *Service) Refresh(ctx context.Context, refresh string) (string, time.Time, error) {
	claims, err := s.parseRefresh(ctx, refresh)
	if err != nil {
		return "", time.Time{}, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return "", time.Time{}, ErrInvalidToken
	}
	return s.tokens.IssueAccess(*user)
}

// Logout revokes a refresh token until its natural expiry.
func (s *Service) Logout(ctx context.Context, refresh string) error {
	claims, err := s.parseRefresh(ctx, refresh)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAtTime())
	if err := s.store.Revoke(ctx, claims.Id, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Service) parseRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.tokens.Parse(raw, TokenRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := s.store.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// PrincipalFromToken validates an access token.
func (s *Service) PrincipalFromToken(raw string) (shared.Principal, error) {
	claims, err := s.tokens.Parse(raw, TokenAccess)
	if err != nil {
		return shared.Principal{}, err
	}
	return shared.Principal{UserID: claims.UserID, Username: claims.Username, Groups: claims.Groups}, nil
}

// Me returns the current user.
func (s *Service) Me(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ForgotPassword emails an OTP when username and email match one account.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrUserMismatch
		}
		return err
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(req.Email)) {
		return ErrUserMismatch
	}
	return s.issueOTP(ctx, user)
}

// ResendOTP replaces any pending code with a new one.
func (s *Service) ResendOTP(ctx context.Context, req ResendOTPRequest) error {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: user does not exist", httpx.ErrValidation)
		}
		return err
	}
	return s.issueOTP(ctx, user)
}

func (s *Service) issueOTP(ctx context.Context, user *User) error {
	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	rec := OTPRecord{Code: code, ExpiresAt: s.now().Add(s.otpTTL)}
	if err := s.store.SaveOTP(ctx, user.ID, rec, s.otpTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if s.mailer != nil {
		if err := s.mailer.SendOTP(ctx, user.Email, user.Username, code, s.otpTTL); err != nil {
			return fmt.Errorf("send otp: %w", err)
		}
	}
	s.logger.Info("password reset otp issued", slog.Int64("user_id", user.ID))
	return nil
}

// VerifyOTP marks a pending code as verified.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	user, rec, err := s.loadOTP(ctx, req.Username)
	if err != nil {
		return err
	}
	if rec.Expired(s.now()) {
		_ = s.store.DeleteOTP(ctx, user.ID)
		return ErrOTPExpired
	}
	if !codesEqual(rec.Code, req.OTP) {
		rec.Attempts++
		if rec.Attempts >= maxOTPAttempts {
			_ = s.store.DeleteOTP(ctx, user.ID)
			return ErrInvalidOTP
		}
		_ = s.store.SaveOTP(ctx, user.ID, rec, time.Until(rec.ExpiresAt))
		return ErrInvalidOTP
	}
	rec.Verified = true
	return s.store.SaveOTP(ctx, user.ID, rec, time.Until(rec.ExpiresAt))
}

// ResetPassword sets a new password using a verified code.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(req.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	user, rec, err := s.loadOTP(ctx, req.Username)
	if err != nil {
		return err
	}
	if !codesEqual(rec.Code, req.OTP) {
		return ErrInvalidOTP
	}
	if !rec.Verified {
		return ErrOTPNotVerified
	}
	if rec.Expired(s.now()) {
		_ = s.store.DeleteOTP(ctx, user.ID)
		return ErrOTPExpired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.store.DeleteOTP(ctx, user.ID); err != nil {
		s.logger.Warn("delete used otp", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	if s.mailer != nil {
		if err := s.mailer.SendPasswordChanged(ctx, user.Email, user.Username); err != nil {
			s.logger.Warn("send password changed email", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) loadOTP(ctx context.Context, username string) (*User, OTPRecord, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, OTPRecord{}, fmt.Errorf("%w: user does not exist", httpx.ErrValidation)
		}
		return nil, OTPRecord{}, err
	}
	rec, ok, err := s.store.LoadOTP(ctx, user.ID)
	if err != nil {
		return nil, OTPRecord{}, fmt.Errorf("load otp: %w", err)
	}
	if !ok {
		return nil, OTPRecord{}, ErrInvalidOTP
	}
	return user, rec, nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
