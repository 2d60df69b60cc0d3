package tui

import (
	"regexp"
	"strings"
)

// CommandType 斜杠命令类型
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeLesson
	CommandTypeIllustrate
	CommandTypeEditIllustration
	CommandTypeVideo
	CommandTypeAnalyze
	CommandTypeExport
	CommandTypeDictate
	CommandTypeExample
)

// Command 解析后的命令
type Command struct {
	Type CommandType
	Raw  string
	// Arg 命令参数，例如 /lesson 的主题或 /export 的目录
	Arg string
}

// CommandParser 对话输入框中的斜杠命令解析器
type CommandParser struct {
	patterns []commandPattern
}

type commandPattern struct {
	typ CommandType
	re  *regexp.Regexp
}

// NewCommandParser 创建新的命令解析器
func NewCommandParser() *CommandParser {
	parser := &CommandParser{}
	parser.initializePatterns()
	return parser
}

// initializePatterns 初始化正则表达式模式
func (p *CommandParser) initializePatterns() {
	p.patterns = []commandPattern{
		{CommandTypeLesson, regexp.MustCompile(`(?i)^/(?:lesson|课程)(?:\s+(.+))?$`)},
		{CommandTypeIllustrate, regexp.MustCompile(`(?i)^/(?:image|插图)$`)},
		{CommandTypeEditIllustration, regexp.MustCompile(`(?i)^/(?:edit|编辑插图)$`)},
		{CommandTypeVideo, regexp.MustCompile(`(?i)^/(?:video|视频)$`)},
		{CommandTypeAnalyze, regexp.MustCompile(`(?i)^/(?:analyze|run|分析)$`)},
		{CommandTypeExport, regexp.MustCompile(`(?i)^/(?:export|导出)(?:\s+(.+))?$`)},
		{CommandTypeDictate, regexp.MustCompile(`(?i)^/(?:dictate|听写)$`)},
		{CommandTypeExample, regexp.MustCompile(`(?i)^/(?:example|示例)$`)},
	}
}

// Parse 不是命令时返回 nil；以 / 开头但无法识别时返回 CommandTypeUnknown
func (p *CommandParser) Parse(input string) *Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}
	for _, pat := range p.patterns {
		if m := pat.re.FindStringSubmatch(input); m != nil {
			cmd := &Command{Type: pat.typ, Raw: input}
			if len(m) > 1 {
				cmd.Arg = strings.TrimSpace(m[1])
			}
			return cmd
		}
	}
	return &Command{Type: CommandTypeUnknown, Raw: input}
}
