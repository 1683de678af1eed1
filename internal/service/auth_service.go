package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"picshare/internal/auth"
	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/observability"
	"picshare/internal/repository"
	"picshare/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost       = 10
	resetTokenBytes  = 32
	DefaultResetTTL  = time.Hour
	invalidCredsText = "Invalid credentials"
)

type AuthService struct {
	userRepo repository.UserRepository
	tx       repository.Transactor
	tokens   *auth.TokenService
	resetTTL time.Duration
	now      func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User         models.Profile `json:"user"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
}

type RefreshResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// ForgotPasswordResult carries the reset token back to the caller since no
// mail delivery exists.
type ForgotPasswordResult struct {
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func NewAuthService(userRepo repository.UserRepository, tx repository.Transactor, tokens *auth.TokenService, resetTTL time.Duration) *AuthService {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	return &AuthService{
		userRepo: userRepo,
		tx:       tx,
		tokens:   tokens,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleUser,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewConflictError("Email already registered")
		}
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("register").Inc()
	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, models.NewUnauthorizedError(invalidCredsText)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, models.NewUnauthorizedError(invalidCredsText)
	}

	observability.AuthEvents.WithLabelValues("login").Inc()
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{
		User:         user.Profile(),
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, models.NewUnauthorizedError("Refresh token is required")
	}
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid refresh token")
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid refresh token")
		}
		return nil, err
	}

	access, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("refresh").Inc()
	return &RefreshResult{Token: access, ExpiresIn: int64(s.tokens.AccessTTL().Seconds())}, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}

	token, err := generateResetToken()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	expires := s.now().Add(s.resetTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("forgot_password").Inc()
	middleware.Logger.InfoContext(ctx, "password reset requested", slog.Uint64("user_id", uint64(user.ID)))
	return &ForgotPasswordResult{ResetToken: token, ExpiresAt: expires}, nil
}

// ResetPassword consumes token: the new hash and the cleared token are
// written by one statement inside one transaction.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return models.NewValidationError("Token and new password are required")
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.GetByResetToken(ctx, token, s.now())
		if err != nil {
			return err
		}
		if user == nil {
			return models.NewUnauthorizedError("Invalid or expired reset token")
		}
		return s.userRepo.ResetPassword(ctx, user.ID, string(hashed))
	})
	if err != nil {
		return err
	}
	observability.AuthEvents.WithLabelValues("reset_password").Inc()
	return nil
}

// Authenticate verifies an access token and checks it has not been revoked.
// A Redis failure while checking revocation lets the token through.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation check failed", slog.String("error", err.Error()))
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

// Logout revokes the presented access token. Without Redis this is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke token", slog.String("error", err.Error()))
	}
	observability.AuthEvents.WithLabelValues("logout").Inc()
	return nil
}

func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(errors.New("generate reset token"), err)
	}
	return hex.EncodeToString(b), nil
}
