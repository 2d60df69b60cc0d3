package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownRendererPlain(t *testing.T) {
	r := NewMarkdownRenderer(false)
	src := "# Loops\n\nA **loop** repeats `code`.\n\n- first\n- second\n\n1. one\n2. two\n\n```python\nfor i in range(3):\n    print(i)\n```\n\n> note\n"

	out := r.Render(src, 0)

	assert.Contains(t, out, "# Loops")
	assert.Contains(t, out, "A loop repeats code.")
	assert.Contains(t, out, "• first\n• second")
	assert.Contains(t, out, "1. one\n2. two")
	assert.Contains(t, out, "python\n  for i in range(3):\n      print(i)")
	assert.Contains(t, out, "│ note")
}

func TestMarkdownRendererTable(t *testing.T) {
	r := NewMarkdownRenderer(false)
	out := r.Render("| a | b |\n|---|---|\n| 1 | 2 |\n", 0)
	assert.Contains(t, out, "a │ b")
	assert.Contains(t, out, "1 │ 2")
}

func TestRenderMarkdownCache(t *testing.T) {
	ClearRenderCache()
	first := RenderMarkdown("## Cached", 40)
	second := RenderMarkdown("## Cached", 40)
	assert.Equal(t, first, second)

	cacheMutex.RLock()
	n := len(renderCache)
	cacheMutex.RUnlock()
	assert.Equal(t, 1, n)

	assert.Equal(t, "", RenderMarkdown("", 40))
}

func TestReplaceUnicodeSymbols(t *testing.T) {
	assert.Equal(t, "* item | quote", replaceUnicodeSymbols("• item │ quote"))
}

func TestEvictOldest(t *testing.T) {
	ClearRenderCache()
	for i := 0; i < cacheMaxSize+1; i++ {
		RenderMarkdown(strings.Repeat("x", i+1), 10)
	}
	cacheMutex.RLock()
	defer cacheMutex.RUnlock()
	assert.LessOrEqual(t, len(renderCache), cacheMaxSize)
}

func TestCommandParser(t *testing.T) {
	p := NewCommandParser()

	assert.Nil(t, p.Parse("hello /lesson"))

	c := p.Parse("/lesson  Sorting Algorithms ")
	if assert.NotNil(t, c) {
		assert.Equal(t, CommandTypeLesson, c.Type)
		assert.Equal(t, "Sorting Algorithms", c.Arg)
	}

	assert.Equal(t, CommandTypeLesson, p.Parse("/LESSON").Type)
	assert.Equal(t, CommandTypeIllustrate, p.Parse("/image").Type)
	assert.Equal(t, CommandTypeEditIllustration, p.Parse("/edit").Type)
	assert.Equal(t, CommandTypeVideo, p.Parse("/视频").Type)
	assert.Equal(t, CommandTypeAnalyze, p.Parse("/run").Type)
	assert.Equal(t, CommandTypeDictate, p.Parse("/dictate").Type)
	assert.Equal(t, CommandTypeExample, p.Parse("/example").Type)

	c = p.Parse("/export /tmp/out")
	assert.Equal(t, CommandTypeExport, c.Type)
	assert.Equal(t, "/tmp/out", c.Arg)

	assert.Equal(t, CommandTypeUnknown, p.Parse("/nope").Type)
}
