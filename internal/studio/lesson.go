package studio

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractCodeExample 返回课程 Markdown 中第一个代码块的语言和内容
func ExtractCodeExample(markdown string) (lang, code string, ok bool) {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var lines *text.Segments
		switch block := n.(type) {
		case *ast.FencedCodeBlock:
			lang = string(block.Language(src))
			lines = block.Lines()
		case *ast.CodeBlock:
			lines = block.Lines()
		default:
			return ast.WalkContinue, nil
		}

		var b strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		if strings.TrimSpace(b.String()) == "" {
			lang = ""
			return ast.WalkContinue, nil
		}
		code = b.String()
		ok = true
		return ast.WalkStop, nil
	})
	return lang, code, ok
}
