package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"account-service/internal/config"
	"account-service/internal/logger"
	"account-service/internal/mailer"
	"account-service/internal/query"
	"account-service/internal/validate"
	"account-service/pkg/apperror"
	"account-service/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resetTicketLifetime = 10 * time.Minute

// listDefaults are the caller-independent parts of the list query.
var listDefaults = query.Defaults{
	Sort:          "-created_at",
	SearchColumns: []string{"name", "email"},
	HiddenColumns: []string{"password_hash"},
}

type Service struct {
	repo Repository
	cfg  *config.Config
	mail mailer.Sender
}

func NewService(repo Repository, cfg *config.Config, mail mailer.Sender) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
		mail: mail,
	}
}

func incorrectCredentials() error {
	return apperror.New(apperror.KindIncorrectCredentials, http.StatusUnauthorized,
		"incorrect email or password")
}

// setPassword applies the password-change policy: hash at rest and stamp the
// change one second in the past so a token issued right after stays valid.
func setPassword(account *Account, plain string) error {
	hash, err := utils.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	changedAt := time.Now().Add(-time.Second)
	account.PasswordHash = hash
	account.PasswordChangedAt = &changedAt
	return nil
}

func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	account := &Account{
		Name:  req.Name,
		Email: req.Email,
		Photo: "default.jpg",
		Role:  RoleUser,
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account.PasswordHash = hash

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, incorrectCredentials()
		}
		return nil, err
	}

	if !utils.CheckPassword(account.PasswordHash, req.Password) {
		return nil, incorrectCredentials()
	}
	return account, nil
}

// IssueResetTicket creates a one-time reset ticket and hands the raw token to
// the mailer. Unknown emails succeed silently so callers cannot probe which
// addresses are registered. A ticket is never left half-written: any failure
// past the point the fields were set clears them again.
func (s *Service) IssueResetTicket(ctx context.Context, email string) error {
	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("password reset requested for unknown email", zap.String("email", email))
			return nil
		}
		return err
	}

	rawToken, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	tokenHash := utils.HashToken(rawToken)
	expiresAt := time.Now().Add(resetTicketLifetime)
	account.PasswordResetTokenHash = &tokenHash
	account.PasswordResetExpiresAt = &expiresAt

	if err := s.repo.Update(ctx, account); err != nil {
		account.PasswordResetTokenHash = nil
		account.PasswordResetExpiresAt = nil
		return err
	}

	msg := mailer.Message{
		To:      account.Email,
		Subject: "Your password reset token (valid for 10 minutes)",
		Body: "Forgot your password? Submit a PATCH request with your new password to " +
			"/api/v1/users/reset-password/" + rawToken +
			". If you didn't forget your password, please ignore this message.",
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		account.PasswordResetTokenHash = nil
		account.PasswordResetExpiresAt = nil
		if clearErr := s.repo.Update(ctx, account); clearErr != nil {
			logger.Error("failed to clear reset ticket after send failure", zap.Error(clearErr))
		}
		logger.Error("failed to send reset mail", zap.Error(err))
		return apperror.New(apperror.KindMailDeliveryFailed, http.StatusInternalServerError,
			"there was an error sending the email, try again later")
	}

	return nil
}

// RedeemResetTicket exchanges a valid raw token for a password change. The
// ticket is single-use: the stored hash and expiry are cleared on success.
func (s *Service) RedeemResetTicket(ctx context.Context, rawToken, newPassword string) (*Account, error) {
	if err := validate.Struct(&ResetPasswordRequest{Password: newPassword}); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByResetTokenHash(ctx, utils.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.KindInvalidOrExpiredTicket, http.StatusBadRequest,
				"token is invalid or has expired")
		}
		return nil, err
	}

	if err := setPassword(account, newPassword); err != nil {
		return nil, err
	}
	account.PasswordResetTokenHash = nil
	account.PasswordResetExpiresAt = nil

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) UpdatePassword(ctx context.Context, id uuid.UUID, req *UpdatePasswordRequest) (*Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(account.PasswordHash, req.CurrentPassword) {
		return nil, apperror.New(apperror.KindIncorrectCredentials, http.StatusUnauthorized,
			"your current password is wrong")
	}

	if err := setPassword(account, req.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, opts ...FindOption) (*Account, error) {
	return s.repo.GetByID(ctx, id, opts...)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Photo != nil {
		account.Photo = *req.Photo
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Deactivate soft-deletes: the account drops out of every default lookup.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	account.Active = false
	return s.repo.Update(ctx, account)
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = RoleUser
	}

	account := &Account{
		Name:  req.Name,
		Email: req.Email,
		Photo: "default.jpg",
		Role:  role,
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account.PasswordHash = hash

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, id, IncludeInactive())
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Photo != nil {
		account.Photo = *req.Photo
	}
	if req.Role != nil {
		account.Role = *req.Role
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, opts query.Options) ([]Account, error) {
	return s.repo.List(ctx, opts, listDefaults)
}
