package refine

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"
)

type mockImageRenderer struct {
	mu       sync.Mutex
	requests []services.RenderRequest
}

func (m *mockImageRenderer) Render(ctx context.Context, req services.RenderRequest) (*services.RenderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	seed := int64(9999)
	if req.Seed != nil {
		seed = *req.Seed
	}
	return &services.RenderResult{
		Data:     []byte("refined-image"),
		MimeType: "image/png",
		Seed:     seed,
	}, nil
}

type mockTextGenerator struct {
	response   string
	lastSystem string
	lastUser   string
}

func (m *mockTextGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.response, nil
}

type pathRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (w *pathRecorder) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = append(w.paths, path)
	return nil
}

func newTestLoop(t *testing.T) (*RefinementLoop, *mockImageRenderer, *mockTextGenerator, *pathRecorder) {
	t.Helper()
	image := &mockImageRenderer{}
	text := &mockTextGenerator{response: "revised prose"}
	writer := &pathRecorder{}
	textPB, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("NewTextPromptBuilder: %v", err)
	}
	imagePB := prompts.NewImagePromptBuilder("")
	loop, err := New(image, text, writer, textPB, imagePB, "/tmp/refine-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return loop, image, text, writer
}

func basePanel() *domain.Panel {
	return &domain.Panel{
		StoryID:       "story-1",
		ChapterNumber: 2,
		Order:         3,
		ImageRef:      "/out/chapter_02/panel_3.png",
		Caption:       "雨の路地",
		PromptUsed:    "SCENE: an alley in the rain",
		SeedUsed:      555,
	}
}

func TestRefinePanel(t *testing.T) {
	ctx := context.Background()

	t.Run("デフォルトではシードが維持されるのだ", func(t *testing.T) {
		loop, image, _, _ := newTestLoop(t)
		state := domain.NewConsistencyState()

		refined, err := loop.RefinePanel(ctx, domain.RefinementRequest{
			Panel:        basePanel(),
			Instructions: "make the umbrella red",
			Group:        "story:story-1",
		}, state, 2048, 2048)
		if err != nil {
			t.Fatalf("RefinePanel: %v", err)
		}
		if refined.SeedUsed != 555 {
			t.Errorf("シードが維持されていません: got %d, want 555", refined.SeedUsed)
		}
		if len(image.requests) != 1 || image.requests[0].Seed == nil || *image.requests[0].Seed != 555 {
			t.Errorf("レンダリング要求に元のシードが渡っていません: %+v", image.requests)
		}
	})

	t.Run("編集指示がプロンプトに反映されるのだ", func(t *testing.T) {
		loop, image, _, _ := newTestLoop(t)
		state := domain.NewConsistencyState()

		refined, err := loop.RefinePanel(ctx, domain.RefinementRequest{
			Panel:        basePanel(),
			Instructions: "make the umbrella red",
			Suggestions:  []string{"Aria wears a scarf"},
		}, state, 2048, 2048)
		if err != nil {
			t.Fatalf("RefinePanel: %v", err)
		}
		got := image.requests[0].Prompt
		if !strings.Contains(got, "an alley in the rain") {
			t.Errorf("元プロンプトが基礎になっていません: %q", got)
		}
		if !strings.Contains(got, "make the umbrella red") {
			t.Errorf("編集指示が含まれていません: %q", got)
		}
		if !strings.Contains(got, "Aria wears a scarf") {
			t.Errorf("一貫性ヒントが含まれていません: %q", got)
		}
		if refined.PromptUsed != got {
			t.Errorf("PromptUsed が実際のプロンプトと一致しません")
		}
	})

	t.Run("NewSeed 指定時はそのシードを使いグループを更新するのだ", func(t *testing.T) {
		loop, _, _, _ := newTestLoop(t)
		state := domain.NewConsistencyState()
		state.SetSeedIfAbsent("story:story-1", 555)
		newSeed := int64(777)

		refined, err := loop.RefinePanel(ctx, domain.RefinementRequest{
			Panel:        basePanel(),
			Instructions: "change time of day to night",
			NewSeed:      &newSeed,
			Group:        "story:story-1",
		}, state, 2048, 2048)
		if err != nil {
			t.Fatalf("RefinePanel: %v", err)
		}
		if refined.SeedUsed != 777 {
			t.Errorf("NewSeed が使われていません: got %d", refined.SeedUsed)
		}
		if got, ok := state.Seed("story:story-1"); !ok || got != 777 {
			t.Errorf("グループのシードが差し替わっていません: got %d, ok=%v", got, ok)
		}
	})

	t.Run("preserveSeed=false で再採番されるのだ", func(t *testing.T) {
		loop, image, _, _ := newTestLoop(t)
		state := domain.NewConsistencyState()
		state.SetSeedIfAbsent("story:story-1", 555)
		preserve := false

		refined, err := loop.RefinePanel(ctx, domain.RefinementRequest{
			Panel:        basePanel(),
			Instructions: "completely restage this shot",
			PreserveSeed: &preserve,
			Group:        "story:story-1",
		}, state, 2048, 2048)
		if err != nil {
			t.Fatalf("RefinePanel: %v", err)
		}
		if image.requests[0].Seed != nil {
			t.Errorf("シードなしで要求されるべきところ、渡されています: %d", *image.requests[0].Seed)
		}
		if refined.SeedUsed != 9999 {
			t.Errorf("サービスが採番したシードが記録されていません: got %d", refined.SeedUsed)
		}
		if got, _ := state.Seed("story:story-1"); got != 9999 {
			t.Errorf("再採番がグループに反映されていません: got %d", got)
		}
	})

	t.Run("メタデータが維持されるのだ", func(t *testing.T) {
		loop, _, _, writer := newTestLoop(t)
		state := domain.NewConsistencyState()

		refined, err := loop.RefinePanel(ctx, domain.RefinementRequest{
			Panel:        basePanel(),
			Instructions: "tighten the framing",
		}, state, 1536, 2048)
		if err != nil {
			t.Fatalf("RefinePanel: %v", err)
		}
		if refined.StoryID != "story-1" || refined.ChapterNumber != 2 || refined.Order != 3 {
			t.Errorf("位置情報が維持されていません: %+v", refined)
		}
		if refined.Caption != "雨の路地" {
			t.Errorf("キャプションが維持されていません: %q", refined.Caption)
		}
		if refined.ImageRef == "" || !strings.Contains(refined.ImageRef, "panel_3_refined") {
			t.Errorf("リファイン画像の保存先が不正です: %q", refined.ImageRef)
		}
		if len(writer.paths) != 1 {
			t.Errorf("画像が保存されていません")
		}
	})

	t.Run("対象のないリクエストは拒否されるのだ", func(t *testing.T) {
		loop, _, _, _ := newTestLoop(t)
		state := domain.NewConsistencyState()

		_, err := loop.RefinePanel(ctx, domain.RefinementRequest{
			Instructions: "do something",
		}, state, 2048, 2048)
		if err == nil {
			t.Error("対象なしリクエストでエラーが返るべきです")
		}
	})
}

func TestRefineChapterText(t *testing.T) {
	ctx := context.Background()

	t.Run("本文が丸ごと置き換わるのだ", func(t *testing.T) {
		loop, _, text, _ := newTestLoop(t)
		text.response = "彼女は傘を置いて、雨の中へ歩き出した。"
		original := &domain.ChapterText{ChapterNumber: 4, Prose: "古い本文"}

		revised, err := loop.RefineChapterText(ctx, domain.RefinementRequest{
			Chapter:      original,
			Instructions: "make the ending more hopeful",
		}, "drama")
		if err != nil {
			t.Fatalf("RefineChapterText: %v", err)
		}
		if revised.ChapterNumber != 4 {
			t.Errorf("章番号が維持されていません: got %d", revised.ChapterNumber)
		}
		if revised.Prose != text.response {
			t.Errorf("本文が置き換わっていません: %q", revised.Prose)
		}
		if !strings.Contains(text.lastUser, "古い本文") {
			t.Errorf("元本文がプロンプトに渡っていません")
		}
		if !strings.Contains(text.lastUser, "make the ending more hopeful") {
			t.Errorf("編集指示がプロンプトに渡っていません")
		}
	})

	t.Run("抜粋指定時はその抜粋が対象になるのだ", func(t *testing.T) {
		loop, _, text, _ := newTestLoop(t)
		original := &domain.ChapterText{ChapterNumber: 1, Prose: "本文全体"}

		_, err := loop.RefineChapterText(ctx, domain.RefinementRequest{
			Chapter:      original,
			Instructions: "rewrite this paragraph",
			Passage:      "選択された抜粋",
		}, "")
		if err != nil {
			t.Fatalf("RefineChapterText: %v", err)
		}
		if !strings.Contains(text.lastUser, "選択された抜粋") {
			t.Errorf("抜粋がプロンプトに渡っていません")
		}
		if strings.Contains(text.lastUser, "本文全体") {
			t.Errorf("抜粋指定時に本文全体が渡っています")
		}
	})

	t.Run("空の書き直し結果はエラーになるのだ", func(t *testing.T) {
		loop, _, text, _ := newTestLoop(t)
		text.response = "   "

		_, err := loop.RefineChapterText(ctx, domain.RefinementRequest{
			Chapter:      &domain.ChapterText{ChapterNumber: 1, Prose: "x"},
			Instructions: "rewrite",
		}, "")
		if err == nil {
			t.Error("空応答でエラーが返るべきです")
		}
	})
}
