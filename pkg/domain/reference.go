package domain

// CharacterReference は物語に登場する人物の視覚的な設定票です。
// Name は物語内で大文字小文字を区別しない一意キーとして扱います。
type CharacterReference struct {
	Name        string `json:"name"`
	Description string `json:"description"` // 外見の特徴
	Personality string `json:"personality,omitempty"`
	Role        string `json:"role,omitempty"`
}

// LocationReference は舞台となる場所の設定票です。
// Name の一意性ルールは CharacterReference と同じです。
type LocationReference struct {
	Name        string `json:"name"`
	Description string `json:"description"` // 環境・雰囲気
}

// ExtractionResult は ReferenceExtractor が AI 応答から取り出す構造です。
type ExtractionResult struct {
	Characters      []CharacterReference `json:"characters"`
	Locations       []LocationReference  `json:"locations"`
	ContinuityNotes string               `json:"continuity_notes"`
}
