// Package user はアカウント情報、メールアドレス確認、退会のドメインロジックを提供する。
package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/wantify/internal/mail"
	"github.com/hitoshi/wantify/internal/model"
	"github.com/hitoshi/wantify/internal/repository"
)

const (
	// VerificationTTL は確認コードの有効期間。
	VerificationTTL = 10 * time.Minute
	// otpBytes は確認コードの乱数バイト数。base32で8文字になる。
	otpBytes = 5
	// maxEmailLength 以上の長さのメールアドレスは受け付けない。
	maxEmailLength = 256
)

var (
	emailPattern = regexp.MustCompile(`^.+@.+\..+$`)
	otpEncoding  = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo      repository.UserRepository
	verifications repository.EmailVerificationRepository
	sender        mail.Sender
	Now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	verifications repository.EmailVerificationRepository,
	sender mail.Sender,
) *Service {
	return &Service{
		userRepo:      userRepo,
		verifications: verifications,
		sender:        sender,
		Now:           time.Now,
	}
}

// RequestEmailVerification は確認コードを発行してメールで送信する。
// 既存のリクエストは破棄される。ゲストユーザーは利用できない。
func (s *Service) RequestEmailVerification(ctx context.Context, user *model.User, email string) error {
	if user.IsGuest {
		return model.NewUnauthenticatedError()
	}

	email = strings.TrimSpace(email)
	if len(email) >= maxEmailLength || !emailPattern.MatchString(email) {
		return model.NewValidationError("Invalid email address", map[string]string{"email": "有効なメールアドレスを入力してください。"})
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := s.Now()
	req := &model.EmailVerificationRequest{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(VerificationTTL),
		CreatedAt: now,
	}
	if err := s.verifications.Replace(ctx, req); err != nil {
		slog.Error("failed to create email verification request",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.NewEmailVerificationNotCreatedError()
	}

	if err := s.sender.Send(ctx, mail.Message{
		To:      email,
		Subject: "Verify your email address",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(VerificationTTL.Minutes())),
	}); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	slog.Info("email verification requested", slog.String("user_id", user.ID))
	return nil
}

// ConfirmEmailVerification は確認コードを照合し、メールアドレスを確認済みにする。
// コード不一致、期限切れ、リクエストなしはすべて同じエラーを返す。
func (s *Service) ConfirmEmailVerification(ctx context.Context, user *model.User, code string) (*model.User, error) {
	if user.IsGuest {
		return nil, model.NewUnauthenticatedError()
	}

	req, err := s.verifications.FindLatestByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find email verification request: %w", err)
	}

	now := s.Now()
	code = strings.ToUpper(strings.TrimSpace(code))
	if req == nil || req.Expired(now) || subtle.ConstantTimeCompare([]byte(code), []byte(req.Code)) != 1 {
		return nil, model.NewEmailVerificationNotFoundError()
	}

	if err := s.verifications.Confirm(ctx, req, now); err != nil {
		return nil, fmt.Errorf("failed to confirm email: %w", err)
	}

	updated := *user
	updated.Email = req.Email
	updated.EmailVerified = true
	updated.UpdatedAt = now

	slog.Info("email verified", slog.String("user_id", user.ID))
	return &updated, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 所有するウィッシュリストはアイテム・共有リンクごと論理削除され、物理削除はしない。
// ロック中のウィッシュリストがある場合はLockedエラーを返す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if err := s.userRepo.Withdraw(ctx, userID, s.Now()); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("failed to withdraw user: %w", err)
	}

	slog.Info("user withdrawn", slog.String("user_id", userID))
	return nil
}

// generateOTP は大文字base32（パディングなし）の確認コードを生成する。
func generateOTP() (string, error) {
	b := make([]byte, otpBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return otpEncoding.EncodeToString(b), nil
}
