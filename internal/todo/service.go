// Package todo はToDo CRUDのドメインロジックを提供する。
//
// 全操作は認証済みプリンシパルのユーザーIDを前提とし、
// 読み取り・更新・削除の前に必ず所有権を検証する。
// 所有権違反はストレージエラーではなく認可エラー（AccessDenied）として返す。
package todo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/security"
)

// UpdateInput は部分更新の入力を表す。
// nilフィールドは変更しない。
type UpdateInput struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Service はToDo管理のサービス層。
type Service struct {
	todoRepo  repository.TodoRepository
	sanitizer security.InputSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(todoRepo repository.TodoRepository, sanitizer security.InputSanitizerService) *Service {
	return &Service{
		todoRepo:  todoRepo,
		sanitizer: sanitizer,
	}
}

// Create は新規ToDoをプリンシパルの所有として作成する。
// タイトルは必須。タイトル・説明文はHTMLタグを除去してから保存する。
func (s *Service) Create(ctx context.Context, userID, title, description string) (*model.Todo, error) {
	title = strings.TrimSpace(s.sanitizer.Sanitize(title))
	if title == "" {
		return nil, model.NewValidationError("Title is required", "Please provide a title for the todo")
	}

	now := time.Now()
	todo := &model.Todo{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Sanitize(description),
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("ToDoの作成に失敗しました: %w", err)
	}

	return todo, nil
}

// List はプリンシパルが所有するToDo一覧を作成日時降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Todo, error) {
	todos, err := s.todoRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ToDo一覧の取得に失敗しました: %w", err)
	}
	return todos, nil
}

// Get は指定IDのToDoを取得する。
// 存在しない場合はTodoNotFound、他ユーザー所有の場合はAccessDeniedを返す。
func (s *Service) Get(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	return s.findOwned(ctx, userID, todoID, "access")
}

// Update は指定IDのToDoに部分更新を適用する。
// 所有権検証はGetと同一。指定された空タイトルは検証エラーとする。
func (s *Service) Update(ctx context.Context, userID, todoID string, input UpdateInput) (*model.Todo, error) {
	todo, err := s.findOwned(ctx, userID, todoID, "update")
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(s.sanitizer.Sanitize(*input.Title))
		if title == "" {
			return nil, model.NewValidationError("Title is required", "Title cannot be empty")
		}
		todo.Title = title
	}
	if input.Description != nil {
		todo.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Completed != nil {
		todo.Completed = *input.Completed
	}
	todo.UpdatedAt = time.Now()

	if err := s.todoRepo.Update(ctx, todo); err != nil {
		return nil, fmt.Errorf("ToDoの更新に失敗しました: %w", err)
	}

	return todo, nil
}

// Delete は指定IDのToDoを削除する。所有権検証はGetと同一。
func (s *Service) Delete(ctx context.Context, userID, todoID string) error {
	if _, err := s.findOwned(ctx, userID, todoID, "delete"); err != nil {
		return err
	}

	if err := s.todoRepo.DeleteByID(ctx, todoID); err != nil {
		return fmt.Errorf("ToDoの削除に失敗しました: %w", err)
	}

	return nil
}

// findOwned はToDoを取得し、存在と所有権を検証する。
// actionはAccessDeniedエラーの文言に使用する操作名。
func (s *Service) findOwned(ctx context.Context, userID, todoID, action string) (*model.Todo, error) {
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		return nil, fmt.Errorf("ToDoの取得に失敗しました: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(todoID)
	}
	if todo.UserID != userID {
		return nil, model.NewAccessDeniedError(action)
	}

	return todo, nil
}
