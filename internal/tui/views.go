package tui

import (
	"fmt"
	"strings"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
	"github.com/Zacy-Sokach/PolyTutor/internal/studio"
	"github.com/charmbracelet/lipgloss"
)

var viewLabels = map[studio.View]string{
	studio.ViewLessons:    "课程",
	studio.ViewPlayground: "代码练习",
	studio.ViewChat:       "导师对话",
	studio.ViewVoice:      "语音练习",
}

var flowLabels = map[studio.Flow]string{
	studio.FlowLesson:           "生成课程",
	studio.FlowIllustration:     "生成插图",
	studio.FlowIllustrationEdit: "编辑插图",
	studio.FlowVideo:            "生成视频",
	studio.FlowAnalysis:         "分析代码",
	studio.FlowChat:             "导师回复",
	studio.FlowVoice:            "连接语音",
}

// renderNav 左侧导航栏
func renderNav(s studio.Snapshot, spin string, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("PolyTutor"))
	b.WriteString("\n\n")
	for i, v := range studio.Views() {
		label := fmt.Sprintf("F%d %s", i+1, viewLabels[v])
		if v == s.View {
			b.WriteString(navActive.Render(" " + label + " "))
		} else {
			b.WriteString(navItemStyle.Render(" " + label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, line := range loadingLines(s) {
		b.WriteString(spin + " " + dimStyle.Render(line) + "\n")
	}
	if s.Transcribing {
		b.WriteString(spin + " " + dimStyle.Render("听写中") + "\n")
	}
	return navStyle.Height(height).Render(b.String())
}

func loadingLines(s studio.Snapshot) []string {
	var lines []string
	for _, f := range []studio.Flow{
		studio.FlowLesson, studio.FlowIllustration, studio.FlowIllustrationEdit,
		studio.FlowVideo, studio.FlowAnalysis, studio.FlowChat, studio.FlowVoice,
	} {
		if s.Loading(f) {
			lines = append(lines, flowLabels[f])
		}
	}
	return lines
}

// renderTopics 课程视图的主题列表
func renderTopics(s studio.Snapshot, cursor int) string {
	var b strings.Builder
	for i, topic := range studio.Topics {
		prefix := "  "
		if i == cursor {
			prefix = cursorStyle.Render("› ")
		}
		line := topic
		if s.Lesson != nil && s.Lesson.Topic == topic {
			line = titleStyle.Render(topic)
		}
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

// renderLesson 课程正文
func renderLesson(s studio.Snapshot, width int) string {
	if s.Lesson == nil {
		if s.Loading(studio.FlowLesson) {
			return dimStyle.Render("正在为「" + s.Topic + "」生成课程...")
		}
		return dimStyle.Render("选择一个主题后按 Enter 生成课程")
	}
	return RenderMarkdown(s.Lesson.Text, width)
}

// renderMedia 插图和视频的状态行
func renderMedia(s studio.Snapshot) string {
	image := "无"
	switch {
	case s.Loading(studio.FlowIllustration) || s.Loading(studio.FlowIllustrationEdit):
		image = "生成中..."
	case s.Image != "":
		if mimeType, data, err := gateway.DecodeDataURI(s.Image); err == nil {
			image = fmt.Sprintf("%s %s", mimeType, formatSize(int64(len(data))))
		} else {
			image = "格式无法识别"
		}
	}

	video := "无"
	switch {
	case s.Loading(studio.FlowVideo):
		video = "生成中，可能需要几分钟..."
	case s.Video != nil:
		video = fmt.Sprintf("%s (%s)", s.Video.Path, formatSize(s.Video.Size))
	}
	return dimStyle.Render("插图: "+image) + "\n" + dimStyle.Render("视频: "+video)
}

// renderAnalysis 代码分析结果面板
func renderAnalysis(s studio.Snapshot, width int) string {
	if s.Analysis == nil {
		if s.Loading(studio.FlowAnalysis) {
			return dimStyle.Render("正在分析代码...")
		}
		return dimStyle.Render("按 Ctrl+R 运行并分析代码")
	}
	a := s.Analysis
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(sectionStyle.Render("讲解") + "\n")
	b.WriteString(wrap.Render(a.Explanation) + "\n\n")

	b.WriteString(sectionStyle.Render("问题") + "  " + studio.BugSummary(a) + "\n")
	for _, bug := range a.Bugs {
		b.WriteString(wrap.Render("• "+bug) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("改进建议") + "\n")
	for _, imp := range a.Improvements {
		b.WriteString(wrap.Render("• "+imp) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("模拟输出") + "\n")
	out := a.SimulatedOutput
	if out == "" {
		out = "(无输出)"
	}
	b.WriteString(out)
	return b.String()
}

// renderChat 对话记录
func renderChat(s studio.Snapshot, width int) string {
	if len(s.Chat) == 0 {
		return dimStyle.Render("向导师提问吧。Ctrl+T 可以模拟语音输入。")
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, turn := range s.Chat {
		switch turn.Role {
		case studio.RoleUser:
			b.WriteString(userStyle.Render("你: "))
			b.WriteString(wrap.Render(turn.Text))
			switch turn.Status {
			case studio.TurnPending:
				b.WriteString(" " + dimStyle.Render("(发送中)"))
			case studio.TurnFailed:
				b.WriteString(" " + failedStyle.Render("(未送达)"))
			}
		default:
			b.WriteString(modelStyle.Render("导师: "))
			b.WriteString(RenderMarkdown(turn.Text, width))
		}
		b.WriteString("\n\n")
	}
	if s.Loading(studio.FlowChat) {
		b.WriteString(dimStyle.Render("导师正在思考..."))
	}
	return b.String()
}

var voiceStatusLabels = map[studio.VoiceStatus]string{
	studio.VoiceIdle:       "未连接",
	studio.VoiceConnecting: "连接中...",
	studio.VoiceOpen:       "通话中",
	studio.VoiceClosed:     "已挂断",
	studio.VoiceFailed:     "连接中断",
}

// renderVoice 语音会话状态和转写
func renderVoice(s studio.Snapshot, width int) string {
	v := s.Voice
	var b strings.Builder
	b.WriteString(sectionStyle.Render("状态") + " " + voiceStatusLabels[v.Status])
	if v.AudioBytes > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  已接收音频 %s", formatSize(int64(v.AudioBytes)))))
	}
	b.WriteString("\n\n")

	wrap := lipgloss.NewStyle().Width(width)
	for _, line := range v.Transcript {
		label := modelStyle.Render("导师: ")
		if line.Speaker == studio.RoleUser {
			label = userStyle.Render("你: ")
		}
		text := line.Text
		if !line.Final {
			text += " …"
		}
		b.WriteString(label + wrap.Render(text) + "\n")
	}
	if len(v.Transcript) == 0 && v.Status != studio.VoiceOpen {
		b.WriteString(dimStyle.Render("按 Ctrl+O 开始与语音导师对话"))
	}
	return b.String()
}

func helpText(v studio.View) string {
	common := "F1-F4/Tab: 切换视图 • Esc: 取消 • Ctrl+C: 退出"
	switch v {
	case studio.ViewLessons:
		return "↑/↓: 选择 • Enter: 生成课程 • i: 插图 • e: 编辑插图 • v: 视频 • p: 示例代码 • x: 导出 • " + common
	case studio.ViewPlayground:
		return "Ctrl+R: 运行并分析 • " + common
	case studio.ViewChat:
		return "Enter: 发送 • Ctrl+T: 语音输入 • /lesson /image /video /export • " + common
	case studio.ViewVoice:
		return "Ctrl+O: 连接 • Ctrl+X: 挂断 • Enter: 发送文字 • " + common
	default:
		return common
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
