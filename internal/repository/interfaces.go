// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/todoman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// emailのユニーク制約違反はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// TodoRepository はToDoデータの永続化インターフェース。
type TodoRepository interface {
	// Create はToDoを作成する。
	Create(ctx context.Context, todo *model.Todo) error

	// FindByID は指定IDのToDoを取得する。見つからない場合はnilを返す。
	// 所有権の判定は呼び出し側（サービス層）の責務。
	FindByID(ctx context.Context, id string) (*model.Todo, error)

	// ListByUserID は指定ユーザーのToDo一覧を作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Todo, error)

	// Update はToDoのtitle・description・completed・updated_atを上書き更新する。
	Update(ctx context.Context, todo *model.Todo) error

	// DeleteByID は指定IDのToDoを削除する。
	DeleteByID(ctx context.Context, id string) error
}
