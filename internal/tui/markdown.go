package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownRenderer 把课程 Markdown 渲染成终端文本
type MarkdownRenderer struct {
	parser parser.Parser
	styles markdownStyles
	color  bool
}

type markdownStyles struct {
	heading    lipgloss.Style
	subheading lipgloss.Style
	code       lipgloss.Style
	codeSpan   lipgloss.Style
	link       lipgloss.Style
	emphasis   lipgloss.Style
	strong     lipgloss.Style
	quote      lipgloss.Style
	rule       lipgloss.Style
}

// NewMarkdownRenderer color 为 false 时输出不带样式的纯文本
func NewMarkdownRenderer(color bool) *MarkdownRenderer {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	r := &MarkdownRenderer{parser: md.Parser(), color: color}
	r.initStyles()
	return r
}

func (r *MarkdownRenderer) initStyles() {
	r.styles = markdownStyles{
		heading:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		subheading: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		code:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")),
		codeSpan:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		link:       lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		emphasis:   lipgloss.NewStyle().Italic(true),
		strong:     lipgloss.NewStyle().Bold(true),
		quote:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		rule:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (r *MarkdownRenderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Render 渲染整篇文档，width 小于等于 0 时不折行
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	src := []byte(markdown)
	doc := r.parser.Parse(text.NewReader(src))

	var blocks []string
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if out := r.block(c, src, width); out != "" {
			blocks = append(blocks, out)
		}
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func (r *MarkdownRenderer) block(n ast.Node, src []byte, width int) string {
	switch node := n.(type) {
	case *ast.Heading:
		title := r.inline(node, src)
		if node.Level <= 2 {
			return r.style(r.styles.heading, strings.Repeat("#", node.Level)+" "+title)
		}
		return r.style(r.styles.subheading, title)

	case *ast.Paragraph, *ast.TextBlock:
		return r.wrap(r.inline(node, src), width)

	case *ast.FencedCodeBlock:
		return r.codeBlock(node.Lines(), src, string(node.Language(src)))

	case *ast.CodeBlock:
		return r.codeBlock(node.Lines(), src, "")

	case *ast.List:
		var items []string
		i := node.Start
		if i == 0 {
			i = 1
		}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "• "
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + ". "
				i++
			}
			body := r.children(item, src, width-lipgloss.Width(marker))
			items = append(items, indent(body, marker, strings.Repeat(" ", lipgloss.Width(marker))))
		}
		sep := "\n"
		if !node.IsTight {
			sep = "\n\n"
		}
		return strings.Join(items, sep)

	case *ast.Blockquote:
		body := r.children(node, src, width-2)
		bar := r.style(r.styles.quote, "│ ")
		return indent(body, bar, bar)

	case *ast.ThematicBreak:
		w := width
		if w <= 0 || w > 60 {
			w = 60
		}
		return r.style(r.styles.rule, strings.Repeat("─", w))

	case *east.Table:
		return r.table(node, src)

	case *ast.HTMLBlock:
		var b strings.Builder
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return strings.TrimRight(b.String(), "\n")

	default:
		return r.children(n, src, width)
	}
}

func (r *MarkdownRenderer) children(n ast.Node, src []byte, width int) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if out := r.block(c, src, width); out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n")
}

func (r *MarkdownRenderer) codeBlock(lines *text.Segments, src []byte, lang string) string {
	var out []string
	if lang != "" {
		out = append(out, r.style(r.styles.quote, lang))
	}
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(src)), "\n")
		out = append(out, "  "+r.style(r.styles.code, line))
	}
	return strings.Join(out, "\n")
}

func (r *MarkdownRenderer) table(t *east.Table, src []byte) string {
	var rows []string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.inline(cell, src))
		}
		line := strings.Join(cells, " │ ")
		if _, ok := row.(*east.TableHeader); ok {
			line = r.style(r.styles.strong, line)
		}
		rows = append(rows, line)
	}
	return strings.Join(rows, "\n")
}

// inline 渲染行内节点
func (r *MarkdownRenderer) inline(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.HardLineBreak() {
				b.WriteString("\n")
			} else if node.SoftLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeSpan:
			b.WriteString(r.style(r.styles.codeSpan, r.plain(node, src)))
		case *ast.Emphasis:
			s := r.styles.emphasis
			if node.Level >= 2 {
				s = r.styles.strong
			}
			b.WriteString(r.style(s, r.inline(node, src)))
		case *ast.Link:
			b.WriteString(r.style(r.styles.link, r.inline(node, src)))
		case *ast.AutoLink:
			b.WriteString(r.style(r.styles.link, string(node.URL(src))))
		case *ast.Image:
			b.WriteString("[" + r.inline(node, src) + "]")
		case *east.Strikethrough:
			b.WriteString(r.style(lipgloss.NewStyle().Strikethrough(true), r.inline(node, src)))
		case *east.TaskCheckBox:
			if node.IsChecked {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
		case *ast.RawHTML:
			segs := node.Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				b.Write(seg.Value(src))
			}
		default:
			b.WriteString(r.inline(c, src))
		}
	}
	return b.String()
}

// plain 不带样式的文本内容
func (r *MarkdownRenderer) plain(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			continue
		}
		if s, ok := c.(*ast.String); ok {
			b.Write(s.Value)
			continue
		}
		b.WriteString(r.plain(c, src))
	}
	return b.String()
}

func (r *MarkdownRenderer) wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func indent(body, first, rest string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = first + line
		} else {
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}
