// Package user はユーザー登録・ログイン・ログアウトのドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/todoman/internal/identity"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// emailPattern はメールアドレスの簡易構文チェック。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IdentityProvider はユーザーサービスが必要とするIDプロバイダー操作のインターフェース。
// identity.SupabaseClientの部分集合として定義する。
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, name string) (*identity.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.SignInResult, error)
	SignOut(ctx context.Context, accessToken string) error
}

// PublicUser はAPIレスポンスに載せるサニタイズ済みユーザービュー。
// パスワードハッシュは含めない。
type PublicUser struct {
	ID    string
	Email string
	Name  string
}

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	AccessToken string
	User        PublicUser
}

// Service はユーザー管理のサービス層。
// アカウントのライフサイクル（登録→認証セッション→ログアウト）は
// 外部IDプロバイダーが所有し、本サービスは検証とローカルレコードの管理を行う。
type Service struct {
	provider IdentityProvider
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(provider IdentityProvider, userRepo repository.UserRepository) *Service {
	return &Service{
		provider: provider,
		userRepo: userRepo,
	}
}

// Register は新規ユーザーを登録する。
// パスワードはローカル保存用にbcryptでハッシュ化し、アカウント作成自体は
// IDプロバイダーに委譲する。ローカルのUserレコードはプロバイダーが発行した
// 識別子をキーとして作成する。
func (s *Service) Register(ctx context.Context, email, password, name string) (*PublicUser, error) {
	if email == "" || password == "" || name == "" {
		return nil, model.NewValidationError("Email, password, and name are required", "")
	}
	if !emailPattern.MatchString(email) {
		return nil, model.NewValidationError("Please provide a valid email address", "")
	}

	// ローカルレコードの重複チェック（プロバイダー呼び出しの前に行う）
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, classifySignUpError(err)
	}

	now := time.Now()
	newUser := &model.User{
		ID:           result.UserID,
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		// 事前チェックをすり抜けた競合挿入
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create local user record: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", newUser.ID),
		slog.String("email", newUser.Email),
	)

	return &PublicUser{ID: newUser.ID, Email: newUser.Email, Name: newUser.Name}, nil
}

// Login は資格情報の検証をIDプロバイダーに委譲し、アクセストークンを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, model.NewValidationError("Email and password are required", "Please provide both email and password")
	}
	if !emailPattern.MatchString(email) {
		return nil, model.NewValidationError("Invalid email format", "Please provide a valid email address")
	}

	result, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, classifySignInError(err)
	}

	slog.Info("user logged in", slog.String("user_id", result.UserID))

	return &LoginResult{
		AccessToken: result.AccessToken,
		User:        PublicUser{ID: result.UserID, Email: result.Email},
	}, nil
}

// Logout はセッション無効化をIDプロバイダーに委譲する。
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		var provErr *identity.ProviderError
		if errors.As(err, &provErr) {
			return model.NewLogoutFailedError(provErr.Message)
		}
		return fmt.Errorf("failed to sign out: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// classifySignUpError はプロバイダーの登録エラーメッセージを分類する。
// メール形式・パスワード強度・その他の3種に振り分け、原文はDetailsに残す。
func classifySignUpError(err error) error {
	var provErr *identity.ProviderError
	if !errors.As(err, &provErr) {
		// プロバイダーとの通信自体の失敗は内部エラーとして伝播する
		return fmt.Errorf("identity provider signup failed: %w", err)
	}

	msg := strings.ToLower(provErr.Message)
	switch {
	case strings.Contains(msg, "email"):
		return model.NewRegistrationFailedError("Please provide a valid email address", provErr.Message)
	case strings.Contains(msg, "password"):
		return model.NewRegistrationFailedError("Password must be at least 6 characters long", provErr.Message)
	default:
		return model.NewRegistrationFailedError("Registration failed", provErr.Message)
	}
}

// classifySignInError はプロバイダーのログインエラーメッセージを
// 個別のレスポンスメッセージにマッピングする。
func classifySignInError(err error) error {
	var provErr *identity.ProviderError
	if !errors.As(err, &provErr) {
		return fmt.Errorf("identity provider signin failed: %w", err)
	}

	switch provErr.Message {
	case "Email not confirmed":
		return model.NewLoginFailedError("Please verify your email before logging in", provErr.Message)
	case "Invalid login credentials":
		return model.NewLoginFailedError("Invalid email or password", "Please check your credentials and try again")
	case "Email address not confirmed":
		return model.NewLoginFailedError("Email not verified", "Please check your email for verification link")
	case "Invalid email or password":
		return model.NewLoginFailedError("Invalid credentials", "The email or password you entered is incorrect")
	default:
		return model.NewLoginFailedError("Login failed", provErr.Message)
	}
}
