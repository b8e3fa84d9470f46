// Package publisher は、生成済みの物語（計画・章本文・パネル）を
// Markdown / JSON / HTML の成果物として書き出します。
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/store"

	"github.com/shouni/go-utils/urlpath"
)

const (
	defaultStoryName  = "story.md"
	defaultPanelsName = "panels.json"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理で生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath   string   // 生成された story.md のパス
	PanelsJSONPath string   // パネル監査情報 (panels.json) のパス
	HTMLPath       string   // 生成された HTML のパス（変換器が無効なら空）
	ImageRefs      []string // 参照された全パネル画像のパス
}

// OutputWriter は成果物の書き出し先です。remoteio.OutputWriter がこれを満たします。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, mimeType string) error
}

// HTMLConverter は Markdown を HTML に変換します。
// go-text-format の md2htmlrunner.Runner を薄く包んだものを渡します。
type HTMLConverter interface {
	Run(ctx context.Context, title string, markdown []byte) (io.Reader, error)
}

// StoryPublisher は成果物の永続化とフォーマット変換を担います。
type StoryPublisher struct {
	writer     OutputWriter
	htmlRunner HTMLConverter
}

// NewStoryPublisher は StoryPublisher を初期化します。htmlRunner は nil 可で、
// その場合 HTML 変換はスキップされます。
func NewStoryPublisher(writer OutputWriter, htmlRunner HTMLConverter) (*StoryPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("writer (OutputWriter) は必須です")
	}
	return &StoryPublisher{
		writer:     writer,
		htmlRunner: htmlRunner,
	}, nil
}

// Publish は Markdown の構築、パネル監査 JSON の書き出し、HTML 変換を
// 一括して実行し、生成されたファイル情報を返却するのだ。
func (p *StoryPublisher) Publish(ctx context.Context, plan *domain.StoryPlan, chapters []store.ChapterRecord, opts Options) (PublishResult, error) {
	result := PublishResult{}
	if plan == nil {
		return result, fmt.Errorf("plan は必須です")
	}

	markdownPath, err := urlpath.ResolveOutputPath(opts.OutputDir, defaultStoryName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	content := p.buildMarkdown(plan, chapters, opts.OutputDir, &result.ImageRefs)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	jsonPath, err := p.writePanelsJSON(ctx, chapters, opts.OutputDir)
	if err != nil {
		return result, err
	}
	result.PanelsJSONPath = jsonPath

	if p.htmlRunner != nil {
		slog.InfoContext(ctx, "HTMLへ変換するのだ", "title", plan.Title)
		htmlBuffer, err := p.htmlRunner.Run(ctx, plan.Title, []byte(content))
		if err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}

		htmlPath := strings.TrimSuffix(markdownPath, filepath.Ext(markdownPath)) + ".html"
		if err := p.writer.Write(ctx, htmlPath, htmlBuffer, "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}

// buildMarkdown は物語全体の Markdown を構築します。章は受け取った順に並べます
// （store.GetChapters が章番号順を保証します）。
func (p *StoryPublisher) buildMarkdown(plan *domain.StoryPlan, chapters []store.ChapterRecord, outputDir string, imageRefs *[]string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", plan.Title))
	if plan.Synopsis != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", plan.Synopsis))
	}

	for _, ch := range chapters {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", ch.ChapterNumber)
		} else {
			title = fmt.Sprintf("Chapter %d: %s", ch.ChapterNumber, title)
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", title))

		if ch.Prose != "" {
			sb.WriteString(ch.Prose)
			sb.WriteString("\n\n")
		}

		for _, panel := range ch.Panels {
			if panel.ImageRef == "" {
				continue
			}
			*imageRefs = append(*imageRefs, panel.ImageRef)
			sb.WriteString(fmt.Sprintf("![%s](%s)\n", panel.Caption, relativeRef(outputDir, panel.ImageRef)))
			if panel.Caption != "" {
				sb.WriteString(fmt.Sprintf("*%s*\n", panel.Caption))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// writePanelsJSON はパネルの監査情報（プロンプト・シード・保存先）をJSONで書き出します。
func (p *StoryPublisher) writePanelsJSON(ctx context.Context, chapters []store.ChapterRecord, outputDir string) (string, error) {
	var panels []domain.Panel
	for _, ch := range chapters {
		panels = append(panels, ch.Panels...)
	}

	data, err := json.MarshalIndent(panels, "", "  ")
	if err != nil {
		return "", fmt.Errorf("パネル情報のJSON化に失敗しました: %w", err)
	}

	jsonPath, err := urlpath.ResolveOutputPath(outputDir, defaultPanelsName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, jsonPath, strings.NewReader(string(data)), "application/json"); err != nil {
		return "", fmt.Errorf("パネル情報の書き込みに失敗しました: %w", err)
	}
	return jsonPath, nil
}

// relativeRef は Markdown から参照しやすいよう、出力ディレクトリ配下の
// 画像パスを相対パスへ変換します。変換できないパスはそのまま返します。
func relativeRef(outputDir, imageRef string) string {
	if outputDir == "" || strings.HasPrefix(strings.ToLower(imageRef), "gs://") {
		return imageRef
	}
	rel, err := filepath.Rel(outputDir, imageRef)
	if err != nil || strings.HasPrefix(rel, "..") {
		return imageRef
	}
	return filepath.ToSlash(rel)
}
