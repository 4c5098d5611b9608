package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient はhttptestサーバーに向けたクライアントを生成する。
func newTestClient(serverURL string) *SupabaseClient {
	return NewSupabaseClient(SupabaseConfig{
		BaseURL: serverURL,
		APIKey:  "test-api-key",
	})
}

func TestSignUp_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/auth/v1/signup")
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("apikey") != "test-api-key" {
			t.Errorf("apikey header = %q, want %q", r.Header.Get("apikey"), "test-api-key")
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if payload["email"] != "test@example.com" {
			t.Errorf("email = %v, want %q", payload["email"], "test@example.com")
		}
		meta, _ := payload["data"].(map[string]any)
		if meta["name"] != "Test User" {
			t.Errorf("data.name = %v, want %q", meta["name"], "Test User")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "provider-user-1",
			"email": "test@example.com",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.SignUp(context.Background(), "test@example.com", "password123", "Test User")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.UserID != "provider-user-1" {
		t.Errorf("UserID = %q, want %q", result.UserID, "provider-user-1")
	}
	if result.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", result.Email, "test@example.com")
	}
}

func TestSignUp_UserNestedUnderUserKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{
				"id":    "nested-user-1",
				"email": "nested@example.com",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.SignUp(context.Background(), "nested@example.com", "password123", "Nested")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.UserID != "nested-user-1" {
		t.Errorf("UserID = %q, want %q", result.UserID, "nested-user-1")
	}
}

func TestSignUp_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"msg": "Password should be at least 6 characters",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SignUp(context.Background(), "test@example.com", "123", "Test")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if provErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, http.StatusUnprocessableEntity)
	}
	if provErr.Message != "Password should be at least 6 characters" {
		t.Errorf("Message = %q, want %q", provErr.Message, "Password should be at least 6 characters")
	}
}

func TestSignUp_EmptyUser_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SignUp(context.Background(), "test@example.com", "password123", "Test")
	if err == nil {
		t.Fatal("expected error for missing user data, got nil")
	}
}

func TestSignInWithPassword_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/auth/v1/token")
		}
		if r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("grant_type = %q, want %q", r.URL.Query().Get("grant_type"), "password")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token-abc",
			"user": map[string]any{
				"id":    "provider-user-2",
				"email": "login@example.com",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.SignInWithPassword(context.Background(), "login@example.com", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.AccessToken != "jwt-token-abc" {
		t.Errorf("AccessToken = %q, want %q", result.AccessToken, "jwt-token-abc")
	}
	if result.UserID != "provider-user-2" {
		t.Errorf("UserID = %q, want %q", result.UserID, "provider-user-2")
	}
	if result.Email != "login@example.com" {
		t.Errorf("Email = %q, want %q", result.Email, "login@example.com")
	}
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error_description": "Invalid login credentials",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SignInWithPassword(context.Background(), "login@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if provErr.Message != "Invalid login credentials" {
		t.Errorf("Message = %q, want %q", provErr.Message, "Invalid login credentials")
	}
}

func TestSignInWithPassword_MissingToken_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SignInWithPassword(context.Background(), "login@example.com", "password123")
	if err == nil {
		t.Fatal("expected error for missing session data, got nil")
	}
}

func TestGetUser_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/auth/v1/user")
		}
		if r.Header.Get("Authorization") != "Bearer valid-token" {
			t.Errorf("Authorization = %q, want %q", r.Header.Get("Authorization"), "Bearer valid-token")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "provider-user-3",
			"email": "who@example.com",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	principal, err := client.GetUser(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if principal.ID != "provider-user-3" {
		t.Errorf("ID = %q, want %q", principal.ID, "provider-user-3")
	}
	if principal.Email != "who@example.com" {
		t.Errorf("Email = %q, want %q", principal.Email, "who@example.com")
	}
}

func TestGetUser_InvalidToken_IsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"msg": "invalid JWT",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetUser(context.Background(), "bad-token")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if !provErr.IsAuthFailure() {
		t.Errorf("IsAuthFailure() = false, want true for status %d", provErr.StatusCode)
	}
}

func TestSignOut_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/logout" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/auth/v1/logout")
		}
		if r.Header.Get("Authorization") != "Bearer session-token" {
			t.Errorf("Authorization = %q, want %q", r.Header.Get("Authorization"), "Bearer session-token")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if err := client.SignOut(context.Background(), "session-token"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestSignOut_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"session not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.SignOut(context.Background(), "stale-token")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
}

func TestProviderError_IsAuthFailure(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"401は認証失敗", http.StatusUnauthorized, true},
		{"403は認証失敗", http.StatusForbidden, true},
		{"400は認証失敗ではない", http.StatusBadRequest, false},
		{"500は認証失敗ではない", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ProviderError{StatusCode: tt.statusCode}
			if got := e.IsAuthFailure(); got != tt.want {
				t.Errorf("IsAuthFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseProviderErrorMessage_KeyVariations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"msgキー", `{"msg":"from msg"}`, "from msg"},
		{"messageキー", `{"message":"from message"}`, "from message"},
		{"error_descriptionキー", `{"error_description":"from desc"}`, "from desc"},
		{"errorキー", `{"error":"invalid_grant"}`, "invalid_grant"},
		{"JSONでないボディは原文", `plain text error`, "plain text error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseProviderErrorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("parseProviderErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
