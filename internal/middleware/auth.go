// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/todoman/internal/identity"
	"github.com/hitoshi/todoman/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var principalContextKey = contextKey("principal")

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
// identity.SupabaseClientの部分集合として定義する。
type TokenVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*identity.Principal, error)
}

// BearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// ヘッダーが無い、または形式が不正な場合はfalseを返す。
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// NewAuthMiddleware はベアラートークンをIDプロバイダーで検証し、
// 解決されたプリンシパルをリクエストコンテキストに注入するミドルウェアを返す。
// トークン欠落は401「認証必須」、プロバイダーが無効と報告したトークンは
// 401「無効トークン」、プロバイダーへの到達失敗等の想定外エラーは500を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ベアラートークンの取得
			token, ok := BearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
				return
			}

			// 2. プロバイダーによるトークン検証
			principal, err := verifier.GetUser(r.Context(), token)
			if err != nil {
				var provErr *identity.ProviderError
				if errors.As(err, &provErr) && provErr.IsAuthFailure() {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError(provErr.Message))
					return
				}

				// プロバイダーへの到達失敗は黙殺せず内部エラーとして報告する
				slog.Error("failed to verify token with identity provider",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w, err.Error())
				return
			}

			// 3. 解決済みプリンシパルをコンテキストに注入
			// 外側のロギングミドルウェアにも入れ物経由で伝える
			if holder, ok := r.Context().Value(principalHolderContextKey).(*principalHolder); ok {
				holder.principal = principal
			}
			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*identity.Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*identity.Principal)
	if !ok || principal == nil || principal.ID == "" {
		return nil, fmt.Errorf("principal not found in context")
	}
	return principal, nil
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *identity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
