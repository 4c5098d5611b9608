// Package identity は外部IDプロバイダー（Supabase Auth）との連携を提供する。
//
// アカウントの作成・資格情報の検証・セッション無効化はすべてプロバイダーに
// 委譲し、本サービスはHTTP APIクライアントとしてのみ振る舞う。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Principal はリクエストの資格情報から解決された認証済みアイデンティティを表す。
type Principal struct {
	ID    string
	Email string
}

// ProviderError はIDプロバイダーが報告したエラーを表す。
// Messageはプロバイダーの原文（エラー分類やレスポンスのdetailsに使用する）。
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider error (status %d): %s", e.StatusCode, e.Message)
}

// IsAuthFailure はエラーが無効・期限切れ資格情報によるものかを返す。
// それ以外のプロバイダーエラーは呼び出し側で内部エラーとして扱う。
func (e *ProviderError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// SupabaseConfig はSupabase Authクライアントの設定。
type SupabaseConfig struct {
	BaseURL string // 例: https://xyzcompany.supabase.co
	APIKey  string

	// テスト用にオーバーライド可能なHTTPクライアント
	HTTPClient *http.Client
}

// SupabaseClient はSupabase Auth（GoTrue互換API）のHTTPクライアント。
type SupabaseClient struct {
	config     SupabaseConfig
	httpClient *http.Client
}

// NewSupabaseClient はSupabaseClientを生成する。
func NewSupabaseClient(config SupabaseConfig) *SupabaseClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseClient{
		config:     config,
		httpClient: httpClient,
	}
}

// SignUpResult はアカウント作成結果を表す。
type SignUpResult struct {
	UserID string
	Email  string
}

// SignInResult はログイン結果を表す。
type SignInResult struct {
	AccessToken string
	UserID      string
	Email       string
}

// supabaseUser はプロバイダーのユーザーオブジェクト。
type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// signUpResponse はsignupエンドポイントのレスポンス。
// メール確認設定によってユーザーがトップレベルまたはuserキーの下に返るため
// 両方を受ける。
type signUpResponse struct {
	supabaseUser
	User *supabaseUser `json:"user"`
}

// signInResponse はtokenエンドポイントのレスポンス。
type signInResponse struct {
	AccessToken string        `json:"access_token"`
	User        *supabaseUser `json:"user"`
}

// SignUp はプロバイダーにアカウント作成を委譲する。
// nameはユーザーメタデータとして渡す。
func (c *SupabaseClient) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data": map[string]string{
			"name": name,
		},
	}

	body, err := c.post(ctx, "/auth/v1/signup", "", payload)
	if err != nil {
		return nil, err
	}

	var resp signUpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse signup response: %w", err)
	}

	user := resp.supabaseUser
	if resp.User != nil {
		user = *resp.User
	}
	if user.ID == "" {
		return nil, fmt.Errorf("no user data returned from identity provider")
	}

	return &SignUpResult{UserID: user.ID, Email: user.Email}, nil
}

// SignInWithPassword はプロバイダーに資格情報の検証を委譲し、
// アクセストークンを取得する。
func (c *SupabaseClient) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}

	body, err := c.post(ctx, "/auth/v1/token?grant_type=password", "", payload)
	if err != nil {
		return nil, err
	}

	var resp signInResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("no session data returned from identity provider")
	}

	return &SignInResult{
		AccessToken: resp.AccessToken,
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
	}, nil
}

// GetUser はアクセストークンをプリンシパルに解決する。
// 無効・期限切れトークンはIsAuthFailureがtrueの*ProviderErrorとして返る。
func (c *SupabaseClient) GetUser(ctx context.Context, accessToken string) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	c.setHeaders(req, accessToken)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var user supabaseUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in provider response")
	}

	return &Principal{ID: user.ID, Email: user.Email}, nil
}

// SignOut はプロバイダーにセッション無効化を委譲する。
func (c *SupabaseClient) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	c.setHeaders(req, accessToken)

	_, err = c.do(req)
	return err
}

// post はJSONボディ付きのPOSTリクエストを送信する。
func (c *SupabaseClient) post(ctx context.Context, path, accessToken string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, accessToken)

	return c.do(req)
}

// setHeaders はAPIキーと（あれば）ベアラートークンのヘッダーを設定する。
func (c *SupabaseClient) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.config.APIKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// do はリクエストを実行し、非2xxレスポンスを*ProviderErrorに変換する。
func (c *SupabaseClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    parseProviderErrorMessage(body),
		}
	}

	return body, nil
}

// providerErrorBody はGoTrueのエラーレスポンスで観測されるキーのバリエーション。
type providerErrorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error"`
}

// parseProviderErrorMessage はエラーレスポンスボディからメッセージを抽出する。
func parseProviderErrorMessage(body []byte) string {
	var eb providerErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return string(body)
	}

	switch {
	case eb.Msg != "":
		return eb.Msg
	case eb.Message != "":
		return eb.Message
	case eb.ErrorDescription != "":
		return eb.ErrorDescription
	case eb.ErrorCode != "":
		return eb.ErrorCode
	default:
		return string(body)
	}
}
