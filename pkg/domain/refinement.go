package domain

import "fmt"

// RefinementRequest は、特定のパネル画像または章本文を対象とした
// 再生成の指示です。Panel / Chapter のどちらか一方だけを指定します。
type RefinementRequest struct {
	Panel   *Panel       // パネル再生成の対象
	Chapter *ChapterText // 本文書き直しの対象

	Instructions string   // 必須。編集指示
	Suggestions  []string // 一貫性維持のためのヒント（順序を保持）
	Passage      string   // 本文対象のとき、書き直す抜粋（省略時は本文全体）

	// PreserveSeed が nil の場合、パネル対象ではシードを維持します（デフォルト true）。
	PreserveSeed *bool
	// NewSeed を指定すると PreserveSeed に関わらずそのシードを使用します。
	NewSeed *int64
	// Group はパネル対象の consistency group です。シードの差し替え先を特定します。
	Group string
}

// Validate は対象と指示の妥当性を検査します。
func (r RefinementRequest) Validate() error {
	if r.Instructions == "" {
		return fmt.Errorf("リファイン指示 (instructions) は必須です")
	}
	if r.Panel == nil && r.Chapter == nil {
		return fmt.Errorf("リファイン対象 (panel または chapter) が指定されていません")
	}
	if r.Panel != nil && r.Chapter != nil {
		return fmt.Errorf("リファイン対象は panel と chapter のどちらか一方だけ指定してください")
	}
	return nil
}

// ShouldPreserveSeed はパネル対象でのシード維持の可否を返します。未指定なら true です。
func (r RefinementRequest) ShouldPreserveSeed() bool {
	if r.PreserveSeed == nil {
		return true
	}
	return *r.PreserveSeed
}
