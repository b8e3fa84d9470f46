package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/store"
)

type memWriter struct {
	mu    sync.Mutex
	files map[string][]byte
	mimes map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{files: make(map[string][]byte), mimes: make(map[string]string)}
}

func (w *memWriter) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = data
	w.mimes[path] = mimeType
	return nil
}

type stubHTMLRunner struct {
	lastTitle string
}

func (r *stubHTMLRunner) Run(ctx context.Context, title string, markdown []byte) (io.Reader, error) {
	r.lastTitle = title
	return bytes.NewBufferString("<html>" + title + "</html>"), nil
}

func testPlan() *domain.StoryPlan {
	return &domain.StoryPlan{
		Title:         "雨と猫",
		Synopsis:      "迷い猫と少女の物語。",
		TotalChapters: 1,
		ChapterOutlines: []domain.ChapterOutline{
			{ChapterNumber: 1, Title: "出会い", Summary: "少女が猫を拾う", EstimatedPanels: 2},
		},
	}
}

func testChapters() []store.ChapterRecord {
	return []store.ChapterRecord{
		{
			ID: "s1/chapter/1", StoryID: "s1", ChapterNumber: 1,
			Title: "出会い", Prose: "雨の路地で、彼女は段ボールの中の猫を見つけた。",
			Panels: []domain.Panel{
				{ChapterNumber: 1, Order: 1, ImageRef: "/out/chapter_01/panel_1.png", Caption: "段ボールの猫", SeedUsed: 42, PromptUsed: "SCENE: ..."},
				{ChapterNumber: 1, Order: 2, ImageRef: "/out/chapter_01/panel_2.png", Caption: "差し出された手", SeedUsed: 42, PromptUsed: "SCENE: ..."},
			},
		},
	}
}

func TestStoryPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Markdownとpanels.jsonが書き出されるのだ", func(t *testing.T) {
		w := newMemWriter()
		p, err := NewStoryPublisher(w, nil)
		if err != nil {
			t.Fatalf("NewStoryPublisher: %v", err)
		}

		result, err := p.Publish(ctx, testPlan(), testChapters(), Options{OutputDir: "/out"})
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}

		md := string(w.files[result.MarkdownPath])
		if !strings.Contains(md, "# 雨と猫") {
			t.Errorf("タイトル見出しがありません: %q", md)
		}
		if !strings.Contains(md, "## Chapter 1: 出会い") {
			t.Errorf("章見出しがありません: %q", md)
		}
		if !strings.Contains(md, "![段ボールの猫](chapter_01/panel_1.png)") {
			t.Errorf("パネル画像が相対パスで参照されていません: %q", md)
		}
		if !strings.Contains(md, "彼女は段ボールの中の猫を見つけた") {
			t.Errorf("本文が含まれていません")
		}

		var panels []domain.Panel
		if err := json.Unmarshal(w.files[result.PanelsJSONPath], &panels); err != nil {
			t.Fatalf("panels.json の解析に失敗: %v", err)
		}
		if len(panels) != 2 || panels[0].SeedUsed != 42 {
			t.Errorf("パネル監査情報が不正です: %+v", panels)
		}
		if len(result.ImageRefs) != 2 {
			t.Errorf("ImageRefs が収集されていません: %v", result.ImageRefs)
		}
		if result.HTMLPath != "" {
			t.Errorf("変換器なしで HTMLPath が設定されています: %q", result.HTMLPath)
		}
	})

	t.Run("HTML変換器があればHTMLも書き出されるのだ", func(t *testing.T) {
		w := newMemWriter()
		runner := &stubHTMLRunner{}
		p, err := NewStoryPublisher(w, runner)
		if err != nil {
			t.Fatalf("NewStoryPublisher: %v", err)
		}

		result, err := p.Publish(ctx, testPlan(), testChapters(), Options{OutputDir: "/out"})
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if result.HTMLPath == "" || !strings.HasSuffix(result.HTMLPath, ".html") {
			t.Fatalf("HTMLPath が不正です: %q", result.HTMLPath)
		}
		if got := string(w.files[result.HTMLPath]); !strings.Contains(got, "雨と猫") {
			t.Errorf("HTML内容が不正です: %q", got)
		}
		if runner.lastTitle != "雨と猫" {
			t.Errorf("タイトルが変換器に渡っていません: %q", runner.lastTitle)
		}
		if w.mimes[result.HTMLPath] != "text/html; charset=utf-8" {
			t.Errorf("HTMLのMIMEタイプが不正です: %q", w.mimes[result.HTMLPath])
		}
	})

	t.Run("planなしは拒否されるのだ", func(t *testing.T) {
		p, _ := NewStoryPublisher(newMemWriter(), nil)
		if _, err := p.Publish(ctx, nil, nil, Options{}); err == nil {
			t.Error("plan なしでエラーが返るべきです")
		}
	})
}
