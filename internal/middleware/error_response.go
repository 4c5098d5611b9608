package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/todoman/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 全エンドポイントが {message, details?} の形でエラーを返す。
type ErrorResponseBody struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// メッセージは一般的な文言に留め、診断用の詳細のみをdetailsに載せる。
// ストレージ内部の情報はこれ以上露出させない。
func WriteInternalServerError(w http.ResponseWriter, details string) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Message: "Something went wrong!",
		Details: details,
	})
}
