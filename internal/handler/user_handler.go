// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, email, password, name string) (*user.PublicUser, error)
	// Login は資格情報を検証しアクセストークンを返す。
	Login(ctx context.Context, email, password string) (*user.LoginResult, error)
	// Logout はセッション無効化をIDプロバイダーに委譲する。
	Logout(ctx context.Context, accessToken string) error
}

// UserHandler はユーザー登録・ログイン・ログアウトのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// --- リクエスト・レスポンス型 ---

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はサニタイズ済みユーザービューのレスポンス。
// パスワードハッシュは決して含めない。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// registerResponse は登録成功レスポンス。
type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// loginResponse はログイン成功レスポンス。
type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

// messageResponse はメッセージのみの成功レスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// Register は新規ユーザー登録を処理する。
// POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body", "Please send a valid JSON body"))
		return
	}

	registered, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleServiceError(w, err, "Internal server error during registration")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User: userResponse{
			ID:    registered.ID,
			Email: registered.Email,
			Name:  registered.Name,
		},
	})
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body", "Please send a valid JSON body"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err, "Internal server error during login")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   result.AccessToken,
		User: userResponse{
			ID:    result.User.ID,
			Email: result.User.Email,
		},
	})
}

// Logout はログアウトを処理する。
// POST /api/auth/logout
// 認証ミドルウェアの後段に配置される（ベアラートークン必須）。
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		handleServiceError(w, err, "Internal server error during logout")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Logged out successfully",
	})
}
