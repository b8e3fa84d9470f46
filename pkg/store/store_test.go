package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/go-story-kit/pkg/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("作成と取得ができるのだ", func(t *testing.T) {
		s := NewMemoryStore()

		id, err := s.CreateChapter(ctx, "story-1", 1, "出会い", "彼女は猫を拾った。", []domain.Panel{
			{StoryID: "story-1", ChapterNumber: 1, Order: 1, ImageRef: "/out/p1.png", SeedUsed: 42},
		})
		if err != nil {
			t.Fatalf("CreateChapter: %v", err)
		}

		got, err := s.GetChapter(ctx, id)
		if err != nil {
			t.Fatalf("GetChapter: %v", err)
		}
		if got.Title != "出会い" || got.ChapterNumber != 1 || len(got.Panels) != 1 {
			t.Errorf("保存内容が一致しません: %+v", got)
		}
	})

	t.Run("同じ章番号の二重作成は拒否されるのだ", func(t *testing.T) {
		s := NewMemoryStore()

		if _, err := s.CreateChapter(ctx, "story-1", 1, "a", "x", nil); err != nil {
			t.Fatalf("CreateChapter: %v", err)
		}
		_, err := s.CreateChapter(ctx, "story-1", 1, "b", "y", nil)
		if !errors.Is(err, ErrChapterExists) {
			t.Errorf("ErrChapterExists が返るべきです: %v", err)
		}
	})

	t.Run("章番号の昇順で一覧されるのだ", func(t *testing.T) {
		s := NewMemoryStore()

		for _, n := range []int{3, 1, 2} {
			if _, err := s.CreateChapter(ctx, "story-1", n, "", "prose", nil); err != nil {
				t.Fatalf("CreateChapter(%d): %v", n, err)
			}
		}
		// 別の物語の章は混ざらない
		if _, err := s.CreateChapter(ctx, "story-2", 1, "", "other", nil); err != nil {
			t.Fatalf("CreateChapter(story-2): %v", err)
		}

		records, err := s.GetChapters(ctx, "story-1")
		if err != nil {
			t.Fatalf("GetChapters: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("件数が一致しません: got %d, want 3", len(records))
		}
		for i, r := range records {
			if r.ChapterNumber != i+1 {
				t.Errorf("順序が不正です: index %d に章 %d", i, r.ChapterNumber)
			}
		}
	})

	t.Run("部分更新は指定フィールドだけを変えるのだ", func(t *testing.T) {
		s := NewMemoryStore()

		id, err := s.CreateChapter(ctx, "story-1", 1, "旧タイトル", "旧本文", nil)
		if err != nil {
			t.Fatalf("CreateChapter: %v", err)
		}

		newProse := "新本文"
		if err := s.UpdateChapter(ctx, id, ChapterUpdate{Prose: &newProse}); err != nil {
			t.Fatalf("UpdateChapter: %v", err)
		}

		got, err := s.GetChapter(ctx, id)
		if err != nil {
			t.Fatalf("GetChapter: %v", err)
		}
		if got.Prose != "新本文" {
			t.Errorf("本文が更新されていません: %q", got.Prose)
		}
		if got.Title != "旧タイトル" {
			t.Errorf("未指定のタイトルが変わっています: %q", got.Title)
		}
	})

	t.Run("存在しない章はエラーになるのだ", func(t *testing.T) {
		s := NewMemoryStore()

		if _, err := s.GetChapter(ctx, "missing"); !errors.Is(err, ErrChapterNotFound) {
			t.Errorf("GetChapter: ErrChapterNotFound が返るべきです: %v", err)
		}
		if err := s.UpdateChapter(ctx, "missing", ChapterUpdate{}); !errors.Is(err, ErrChapterNotFound) {
			t.Errorf("UpdateChapter: ErrChapterNotFound が返るべきです: %v", err)
		}
	})

	t.Run("取得結果の変更は保存内容に影響しないのだ", func(t *testing.T) {
		s := NewMemoryStore()

		id, err := s.CreateChapter(ctx, "story-1", 1, "", "prose", []domain.Panel{{Order: 1}})
		if err != nil {
			t.Fatalf("CreateChapter: %v", err)
		}

		got, _ := s.GetChapter(ctx, id)
		got.Panels[0].Order = 99

		again, _ := s.GetChapter(ctx, id)
		if again.Panels[0].Order != 1 {
			t.Errorf("取得結果の変更が保存内容に波及しています: %+v", again.Panels)
		}
	})
}
