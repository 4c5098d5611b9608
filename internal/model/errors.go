// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはユーザー向けメッセージ、Detailsは診断用の補足テキスト
// （ストレージやIDプロバイダーが返したエラー文言）を保持する。
// ストレージ内部の情報はDetails以上に露出させない。
type APIError struct {
	Code    string // エラーコード（HTTPステータスへのマッピングに使用）
	Message string // エラーメッセージ
	Details string // 診断用の詳細（省略可）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeAuthRequired       = "AUTH_REQUIRED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeTodoNotFound       = "TODO_NOT_FOUND"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeRegistrationFailed = "REGISTRATION_FAILED"
	ErrCodeLoginFailed        = "LOGIN_FAILED"
	ErrCodeLogoutFailed       = "LOGOUT_FAILED"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message, details string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: details,
	}
}

// NewAuthRequiredError は認証必須エラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:    ErrCodeAuthRequired,
		Message: "Authentication token required",
	}
}

// NewInvalidTokenError は無効トークンエラーを生成する。
func NewInvalidTokenError(details string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: "Invalid token",
		Details: details,
	}
}

// NewTodoNotFoundError はToDo未検出エラーを生成する。
func NewTodoNotFoundError(todoID string) *APIError {
	return &APIError{
		Code:    ErrCodeTodoNotFound,
		Message: "Todo not found",
		Details: fmt.Sprintf("No todo found with id: %s", todoID),
	}
}

// NewAccessDeniedError は所有権違反エラーを生成する。
// actionには "access"、"update"、"delete" 等の操作名を指定する。
func NewAccessDeniedError(action string) *APIError {
	return &APIError{
		Code:    ErrCodeAccessDenied,
		Message: "Access denied",
		Details: fmt.Sprintf("You do not have permission to %s this todo", action),
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateEmail,
		Message: "User with this email already exists",
	}
}

// NewRegistrationFailedError は登録失敗エラーを生成する。
// messageにはプロバイダーエラーの分類結果、detailsには原文を渡す。
func NewRegistrationFailedError(message, details string) *APIError {
	return &APIError{
		Code:    ErrCodeRegistrationFailed,
		Message: message,
		Details: details,
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
func NewLoginFailedError(message, details string) *APIError {
	return &APIError{
		Code:    ErrCodeLoginFailed,
		Message: message,
		Details: details,
	}
}

// NewLogoutFailedError はログアウト失敗エラーを生成する。
func NewLogoutFailedError(details string) *APIError {
	return &APIError{
		Code:    ErrCodeLogoutFailed,
		Message: "Logout failed",
		Details: details,
	}
}
