// Package model はドメインモデルを定義する。
package model

import "time"

// Todo はユーザーが所有するToDoレコードを表す。
// UserIDは作成後に変更されない（所有権は不変）。
type Todo struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
