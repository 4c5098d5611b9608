package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/todo"
)

// TodoServiceInterface はToDoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	// Create は新規ToDoを作成する。
	Create(ctx context.Context, userID, title, description string) (*model.Todo, error)
	// List は指定ユーザーのToDo一覧を作成日時の降順で返す。
	List(ctx context.Context, userID string) ([]*model.Todo, error)
	// Get は所有権を検証したうえで単一のToDoを返す。
	Get(ctx context.Context, userID, todoID string) (*model.Todo, error)
	// Update は所有権を検証したうえでToDoを部分更新する。
	Update(ctx context.Context, userID, todoID string, input todo.UpdateInput) (*model.Todo, error)
	// Delete は所有権を検証したうえでToDoを削除する。
	Delete(ctx context.Context, userID, todoID string) error
}

// TodoHandler はToDo CRUDのHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{
		service: service,
	}
}

// --- リクエスト・レスポンス型 ---

// createTodoRequest はToDo作成リクエストのボディ。
type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// updateTodoRequest はToDo部分更新リクエストのボディ。
// 省略されたフィールドは更新しない。
type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// todoResponse はToDo 1件のレスポンス表現。
type todoResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// todoMessageResponse はメッセージ付きのToDoレスポンス。
type todoMessageResponse struct {
	Message string       `json:"message"`
	Todo    todoResponse `json:"todo"`
}

// todoListResponse はToDo一覧レスポンス。
type todoListResponse struct {
	Todos []todoResponse `json:"todos"`
}

// todoGetResponse は単一ToDo取得レスポンス。
type todoGetResponse struct {
	Todo todoResponse `json:"todo"`
}

// toTodoResponse はドメインモデルをレスポンス表現に変換する。
func toTodoResponse(t *model.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// principalID はコンテキストから認証済みユーザーIDを取り出す。
// 認証ミドルウェアを通過していない場合は401を書き込みfalseを返す。
func principalID(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return "", false
	}
	return principal.ID, true
}

// Create はToDo作成を処理する。
// POST /api/todos
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body", "Please send a valid JSON body"))
		return
	}

	created, err := h.service.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		handleServiceError(w, err, "Failed to create todo")
		return
	}

	writeJSON(w, http.StatusCreated, todoMessageResponse{
		Message: "Todo created successfully",
		Todo:    toTodoResponse(created),
	})
}

// List はToDo一覧取得を処理する。
// GET /api/todos
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	todos, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err, "Failed to fetch todos")
		return
	}

	// 0件でもnullではなく空配列を返す
	responses := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		responses = append(responses, toTodoResponse(t))
	}

	writeJSON(w, http.StatusOK, todoListResponse{
		Todos: responses,
	})
}

// Get は単一ToDo取得を処理する。
// GET /api/todos/{id}
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	todoID := chi.URLParam(r, "id")

	found, err := h.service.Get(r.Context(), userID, todoID)
	if err != nil {
		handleServiceError(w, err, "Failed to fetch todo")
		return
	}

	writeJSON(w, http.StatusOK, todoGetResponse{
		Todo: toTodoResponse(found),
	})
}

// Update はToDo部分更新を処理する。
// PUT /api/todos/{id}
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	todoID := chi.URLParam(r, "id")

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body", "Please send a valid JSON body"))
		return
	}

	updated, err := h.service.Update(r.Context(), userID, todoID, todo.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		handleServiceError(w, err, "Failed to update todo")
		return
	}

	writeJSON(w, http.StatusOK, todoMessageResponse{
		Message: "Todo updated successfully",
		Todo:    toTodoResponse(updated),
	})
}

// Delete はToDo削除を処理する。
// DELETE /api/todos/{id}
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	todoID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, todoID); err != nil {
		handleServiceError(w, err, "Failed to delete todo")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Todo deleted successfully",
	})
}
