package studio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
	"github.com/russross/blackfriday/v2"
)

// exportLesson 写出 <slug>.md、<slug>.html 以及插图文件
func exportLesson(dir string, lesson LessonContent, image string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建导出目录失败: %w", err)
	}

	base := filepath.Join(dir, slugify(lesson.Topic))
	var files []string

	mdPath := base + ".md"
	if err := os.WriteFile(mdPath, []byte(lesson.Text), 0644); err != nil {
		return files, fmt.Errorf("写入 Markdown 失败: %w", err)
	}
	files = append(files, mdPath)

	htmlPath := base + ".html"
	if err := os.WriteFile(htmlPath, RenderLessonHTML(lesson), 0644); err != nil {
		return files, fmt.Errorf("写入 HTML 失败: %w", err)
	}
	files = append(files, htmlPath)

	if image == "" {
		return files, nil
	}
	mimeType, data, err := gateway.DecodeDataURI(image)
	if err != nil {
		return files, fmt.Errorf("插图数据无效: %w", err)
	}
	imagePath := base + imageExt(mimeType)
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return files, fmt.Errorf("写入插图失败: %w", err)
	}
	files = append(files, imagePath)
	return files, nil
}

// RenderLessonHTML 把课程渲染成完整的 HTML 页面
func RenderLessonHTML(lesson LessonContent) []byte {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Title: lesson.Topic,
		Flags: blackfriday.CommonHTMLFlags | blackfriday.CompletePage,
	})
	return blackfriday.Run([]byte(lesson.Text),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(renderer),
	)
}

func slugify(topic string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "lesson"
	}
	return slug
}

func imageExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
