package domain

import (
	"sort"
	"strings"
	"sync"
)

// NotesSeparator は continuity notes を追記する際の区切り文字列です。
const NotesSeparator = "\n---\n"

// ConsistencyState は1つの物語のライフタイムを通して持ち回る設定台帳です。
// キャラクター・ロケーションの設定票、continuity notes、および
// consistency group ごとのシード値を保持します。
//
// 設定票とノートの更新は ReferenceExtractor のマージ経由、
// シードの捕捉は PanelRenderer / RefinementLoop 経由に限定する運用です。
type ConsistencyState struct {
	mu         sync.RWMutex
	characters map[string]CharacterReference // key: strings.ToLower(Name)
	locations  map[string]LocationReference  // key: strings.ToLower(Name)
	notes      []string
	seeds      map[string]int64 // consistency group -> 捕捉済みシード
}

// NewConsistencyState は空の台帳を生成します。
func NewConsistencyState() *ConsistencyState {
	return &ConsistencyState{
		characters: make(map[string]CharacterReference),
		locations:  make(map[string]LocationReference),
		seeds:      make(map[string]int64),
	}
}

// MergeCharacter は設定票を大文字小文字を区別しない名前キーで upsert します。
//
// マージ規約（決定論的であることがテストの前提です）:
//   - 既存エントリがなければそのまま挿入。表示名は初出時のものを維持します。
//   - Description は、新しい記述が空でなく既存に含まれていない場合に改行で追記します。
//     同一記述の再抽出は no-op（冪等）です。
//   - Personality / Role は未設定の場合のみ埋めます。空文字で既存値を消すことはありません。
func (s *ConsistencyState) MergeCharacter(ref CharacterReference) {
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.characters[key]
	if !ok {
		ref.Name = name
		s.characters[key] = ref
		return
	}

	existing.Description = supplementText(existing.Description, ref.Description)
	if existing.Personality == "" {
		existing.Personality = ref.Personality
	}
	if existing.Role == "" {
		existing.Role = ref.Role
	}
	s.characters[key] = existing
}

// MergeLocation は MergeCharacter と同じ upsert 規約でロケーションを統合します。
func (s *ConsistencyState) MergeLocation(ref LocationReference) {
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.locations[key]
	if !ok {
		ref.Name = name
		s.locations[key] = ref
		return
	}

	existing.Description = supplementText(existing.Description, ref.Description)
	s.locations[key] = existing
}

// AppendNotes は continuity notes を区切り付きで追記します。
// 自動での切り詰めや重複排除は行いません。
func (s *ConsistencyState) AppendNotes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, notes)
}

// Characters は設定票を名前キー順で返します（防御的コピー）。
func (s *ConsistencyState) Characters() []CharacterReference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.characters))
	for k := range s.characters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]CharacterReference, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, s.characters[k])
	}
	return refs
}

// FindCharacter は名前（大文字小文字を区別しない）で設定票を検索します。
func (s *ConsistencyState) FindCharacter(name string) (CharacterReference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.characters[strings.ToLower(strings.TrimSpace(name))]
	return ref, ok
}

// Locations はロケーション設定票を名前キー順で返します。
func (s *ConsistencyState) Locations() []LocationReference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.locations))
	for k := range s.locations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]LocationReference, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, s.locations[k])
	}
	return refs
}

// Notes は追記済みの continuity notes を区切り付きで連結して返します。
func (s *ConsistencyState) Notes() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.Join(s.notes, NotesSeparator)
}

// Seed は consistency group に捕捉済みのシードを返します。
func (s *ConsistencyState) Seed(group string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seed, ok := s.seeds[group]
	return seed, ok
}

// SetSeedIfAbsent は未捕捉の場合のみシードを登録し、登録後の値を返します。
// 先着した値が勝ち、以降のレンダリングはその値を再利用します。
func (s *ConsistencyState) SetSeedIfAbsent(group string, seed int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.seeds[group]; ok {
		return existing
	}
	s.seeds[group] = seed
	return seed
}

// ReplaceSeed は意図的なスタイル変更などで、捕捉済みシードを明示的に差し替えます。
func (s *ConsistencyState) ReplaceSeed(group string, seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds[group] = seed
}

// supplementText は既存の記述に新しい記述を補追します。置き換えではなく追記です。
// 後続パネルが依存している過去の記述が黙って消えないことを保証します。
func supplementText(existing, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return existing
	}
	if existing == "" {
		return incoming
	}
	if strings.Contains(existing, incoming) {
		return existing
	}
	return existing + "\n" + incoming
}
