package domain

import "fmt"

// GenerationError は、外部の生成サービス（テキスト・画像）の呼び出し失敗を表します。
// タイムアウトや空のレスポンスもこのエラーに分類されます。
type GenerationError struct {
	Stage string // "text" / "image" など、どの工程で失敗したか
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("生成サービスの呼び出しに失敗しました (stage: %s): %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MalformedOutputError は、AI応答から構造化データを抽出できなかったことを表します。
// 診断のため、応答本文の抜粋を保持します。
type MalformedOutputError struct {
	Raw string // 応答本文の抜粋（長すぎる場合は切り詰め済み）
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("AI応答から構造化データを抽出できませんでした (応答抜粋: %q): %v", e.Raw, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// PlanValidationError は、パース済みのストーリープランが章番号・章数の
// 不変条件を満たしていないことを表します。章を捏造して黙って修復することはしません。
type PlanValidationError struct {
	Reason string
}

func (e *PlanValidationError) Error() string {
	return fmt.Sprintf("ストーリープランの検証に失敗しました: %s", e.Reason)
}
