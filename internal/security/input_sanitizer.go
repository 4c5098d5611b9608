// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はユーザーが入力するToDoのタイトル・説明文から
// HTMLタグを除去し、保存データ経由のXSSを防止する。
// bluemondayのStrictPolicyを使用し、タグを一切許可しない。
package security

import "github.com/microcosm-cc/bluemonday"

// InputSanitizerService はテキスト入力のサニタイズ機能のインターフェースを定義する。
type InputSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグを全て除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// ToDoのタイトル・説明文はプレーンテキストとして扱うため、
// 許可リストが空のStrictPolicyを使用する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを全て除去して返す。
func (s *inputSanitizer) Sanitize(input string) string {
	return s.policy.Sanitize(input)
}
