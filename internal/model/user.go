// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDは外部IDプロバイダーが発行した識別子をそのまま使用する。
// PasswordHashはプロバイダー側の資格情報ストアと冗長にローカル保持する
// （APIレスポンスには決して含めない）。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
