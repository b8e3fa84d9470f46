// Package store は生成済みの章とパネルの永続化境界を定義します。
// パイプライン本体は StoryStore インターフェースにのみ依存し、
// 実装はインメモリ（go-cache）を既定とします。
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-story-kit/pkg/domain"
)

// ErrChapterNotFound は指定された章が存在しないときに返されます。
var ErrChapterNotFound = errors.New("章が見つかりません")

// ErrChapterExists は同じ章番号の章が既に保存済みのときに返されます。
var ErrChapterExists = errors.New("同じ章番号の章が既に存在します")

// ChapterRecord は保存された1章分のデータです。
type ChapterRecord struct {
	ID            string         `json:"id"`
	StoryID       string         `json:"story_id"`
	ChapterNumber int            `json:"chapter_number"`
	Title         string         `json:"title"`
	Prose         string         `json:"prose"`
	Panels        []domain.Panel `json:"panels"`
}

// ChapterUpdate は部分更新のためのフィールド集合です。nil のフィールドは変更しません。
type ChapterUpdate struct {
	Title  *string
	Prose  *string
	Panels *[]domain.Panel
}

// StoryStore は章の保存・取得を抽象化します。
type StoryStore interface {
	// CreateChapter は新しい章を保存し、章IDを返します。
	CreateChapter(ctx context.Context, storyID string, chapterNumber int, title, prose string, panels []domain.Panel) (string, error)
	// UpdateChapter は指定フィールドのみを差し替えます。
	UpdateChapter(ctx context.Context, chapterID string, update ChapterUpdate) error
	// GetChapters は物語の全章を章番号の昇順で返します。
	GetChapters(ctx context.Context, storyID string) ([]ChapterRecord, error)
	// GetChapter は章IDで1章を取得します。
	GetChapter(ctx context.Context, chapterID string) (*ChapterRecord, error)
}

// MemoryStore は go-cache を使ったインメモリ実装です。
// 単一プロセスのパイプライン実行とテストを対象とします。
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	// storyIndex は storyID → 章IDの集合。go-cache のキー走査を避けるための索引です。
	storyIndex map[string]map[string]struct{}
}

// NewMemoryStore は有効期限なしのインメモリストアを初期化します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:      cache.New(cache.NoExpiration, 10*time.Minute),
		storyIndex: make(map[string]map[string]struct{}),
	}
}

func chapterKey(storyID string, chapterNumber int) string {
	return fmt.Sprintf("%s/chapter/%d", storyID, chapterNumber)
}

// CreateChapter は章を保存します。章IDは storyID と章番号から決定されます。
func (s *MemoryStore) CreateChapter(_ context.Context, storyID string, chapterNumber int, title, prose string, panels []domain.Panel) (string, error) {
	if storyID == "" {
		return "", fmt.Errorf("storyID は必須です")
	}
	if chapterNumber < 1 {
		return "", fmt.Errorf("章番号は1以上である必要があります (got: %d)", chapterNumber)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chapterKey(storyID, chapterNumber)
	if _, found := s.cache.Get(id); found {
		return "", fmt.Errorf("%w (story: %s, chapter: %d)", ErrChapterExists, storyID, chapterNumber)
	}

	record := ChapterRecord{
		ID:            id,
		StoryID:       storyID,
		ChapterNumber: chapterNumber,
		Title:         title,
		Prose:         prose,
		Panels:        append([]domain.Panel(nil), panels...),
	}
	s.cache.Set(id, record, cache.NoExpiration)

	if s.storyIndex[storyID] == nil {
		s.storyIndex[storyID] = make(map[string]struct{})
	}
	s.storyIndex[storyID][id] = struct{}{}

	return id, nil
}

// UpdateChapter は nil でないフィールドだけを差し替えます。
func (s *MemoryStore) UpdateChapter(_ context.Context, chapterID string, update ChapterUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(chapterID)
	if !found {
		return fmt.Errorf("%w (id: %s)", ErrChapterNotFound, chapterID)
	}
	record := v.(ChapterRecord)

	if update.Title != nil {
		record.Title = *update.Title
	}
	if update.Prose != nil {
		record.Prose = *update.Prose
	}
	if update.Panels != nil {
		record.Panels = append([]domain.Panel(nil), (*update.Panels)...)
	}

	s.cache.Set(chapterID, record, cache.NoExpiration)
	return nil
}

// GetChapters は物語の全章を章番号の昇順で返します。
func (s *MemoryStore) GetChapters(_ context.Context, storyID string) ([]ChapterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.storyIndex[storyID]
	records := make([]ChapterRecord, 0, len(ids))
	for id := range ids {
		if v, found := s.cache.Get(id); found {
			records = append(records, copyRecord(v.(ChapterRecord)))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ChapterNumber < records[j].ChapterNumber
	})
	return records, nil
}

// GetChapter は章IDで1章を取得します。
func (s *MemoryStore) GetChapter(_ context.Context, chapterID string) (*ChapterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(chapterID)
	if !found {
		return nil, fmt.Errorf("%w (id: %s)", ErrChapterNotFound, chapterID)
	}
	record := copyRecord(v.(ChapterRecord))
	return &record, nil
}

// copyRecord はパネルスライスまで複製します。取得結果の変更が保存内容に波及しないようにします。
func copyRecord(r ChapterRecord) ChapterRecord {
	r.Panels = append([]domain.Panel(nil), r.Panels...)
	return r
}
