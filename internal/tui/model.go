package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/Zacy-Sokach/PolyTutor/internal/studio"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version 是当前的 PolyTutor 版本，由 main 包设置
var Version string

// Options 界面参数
type Options struct {
	// ExportDir 按 x 或 /export 导出课程的默认目录
	ExportDir string
	Logger    *logger.Logger
}

type Model struct {
	orch   *studio.Orchestrator
	ui     *UIStateManager
	bridge *EventBridge
	parser *CommandParser
	log    *logger.Logger

	snap          studio.Snapshot
	topicCursor   int
	draftRevision int
	status        string
	exportDir     string

	ctx    context.Context    // 用于取消操作的context
	cancel context.CancelFunc // 取消函数
}

// NewModel 创建界面模型
func NewModel(orch *studio.Orchestrator, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	snap := orch.Snapshot()
	ui := NewUIStateManager(snap.Code)

	cursor := 0
	for i, t := range studio.Topics {
		if t == snap.Topic {
			cursor = i
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		orch:          orch,
		ui:            ui,
		bridge:        NewEventBridge(orch.Bus()),
		parser:        NewCommandParser(),
		log:           opts.Logger,
		snap:          snap,
		topicCursor:   cursor,
		draftRevision: snap.DraftRevision,
		exportDir:     opts.ExportDir,
		ctx:           ctx,
		cancel:        cancel,
	}
	m.focusForView()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.ui.spinner.Tick,
		m.bridge.Listen(),
		m.runFlow(studio.FlowLesson, m.orch.EnsureLesson),
	)
}

// runFlow 在 tea.Cmd 协程中执行操作
func (m Model) runFlow(flow studio.Flow, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return FlowDoneMsg{Flow: flow, Err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ui.Resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case StateChangedMsg:
		m.refresh()
		return m, m.bridge.Listen()

	case FlowDoneMsg:
		if msg.Err != nil {
			m.log.Debug("flow finished with error", "flow", string(msg.Flow), "error", msg.Err)
		}
		m.refresh()
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.status = "导出失败，详见日志"
		} else {
			m.status = fmt.Sprintf("已导出 %d 个文件到 %s", len(msg.Files), msg.Dir)
		}
		return m, nil

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.ui.spinner, cmd = m.ui.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancel()
		m.orch.Shutdown()
		m.bridge.Close()
		return m, tea.Quit
	case tea.KeyEsc:
		// 取消正在进行的操作，重新创建context以便下次使用
		m.cancel()
		m.ctx, m.cancel = context.WithCancel(context.Background())
		m.status = "已取消进行中的操作"
		return m, nil
	case tea.KeyF1:
		return m.switchView(studio.ViewLessons)
	case tea.KeyF2:
		return m.switchView(studio.ViewPlayground)
	case tea.KeyF3:
		return m.switchView(studio.ViewChat)
	case tea.KeyF4:
		return m.switchView(studio.ViewVoice)
	case tea.KeyTab:
		views := studio.Views()
		return m.switchView(views[(int(m.snap.View)+1)%len(views)])
	case tea.KeyShiftTab:
		views := studio.Views()
		return m.switchView(views[(int(m.snap.View)+len(views)-1)%len(views)])
	}

	switch m.snap.View {
	case studio.ViewLessons:
		return m.handleLessonsKey(msg)
	case studio.ViewPlayground:
		return m.handlePlaygroundKey(msg)
	case studio.ViewChat:
		return m.handleChatKey(msg)
	case studio.ViewVoice:
		return m.handleVoiceKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v studio.View) (tea.Model, tea.Cmd) {
	m.orch.SetView(v)
	m.status = ""
	m.refresh()
	// 没有课程时回到课程页会重新生成
	if v == studio.ViewLessons && m.snap.Lesson == nil {
		return m, m.runFlow(studio.FlowLesson, m.orch.EnsureLesson)
	}
	return m, nil
}

func (m Model) handleLessonsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.topicCursor > 0 {
			m.topicCursor--
		}
		return m, nil
	case "down", "j":
		if m.topicCursor < len(studio.Topics)-1 {
			m.topicCursor++
		}
		return m, nil
	case "enter":
		topic := studio.Topics[m.topicCursor]
		return m, m.runFlow(studio.FlowLesson, func(ctx context.Context) error {
			return m.orch.GenerateLesson(ctx, topic)
		})
	case "i":
		return m, m.runFlow(studio.FlowIllustration, m.orch.GenerateIllustration)
	case "e":
		return m, m.runFlow(studio.FlowIllustrationEdit, m.orch.EditIllustration)
	case "v":
		return m, m.runFlow(studio.FlowVideo, m.orch.GenerateVideo)
	case "p":
		if !m.orch.LoadExampleIntoPlayground() {
			m.status = "当前课程中没有示例代码"
		}
		m.refresh()
		return m, nil
	case "x":
		return m, m.export(m.exportDir)
	}

	var cmd tea.Cmd
	m.ui.viewport, cmd = m.ui.viewport.Update(msg)
	return m, cmd
}

func (m Model) handlePlaygroundKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlR {
		m.orch.SetCode(m.ui.editor.Value())
		return m, m.runFlow(studio.FlowAnalysis, m.orch.AnalyzeCode)
	}
	if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
		var cmd tea.Cmd
		m.ui.viewport, cmd = m.ui.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.ui.editor, cmd = m.ui.editor.Update(msg)
	m.orch.SetCode(m.ui.editor.Value())
	return m, cmd
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		input := m.ui.chatInput.Value()
		if c := m.parser.Parse(input); c != nil {
			m.ui.chatInput.Reset()
			m.orch.SetDraft("")
			return m, m.handleCommand(c)
		}
		if strings.TrimSpace(input) == "" {
			return m, nil
		}
		// 输入框在发送时立即清空
		m.ui.chatInput.Reset()
		m.orch.SetDraft("")
		return m, m.runFlow(studio.FlowChat, func(ctx context.Context) error {
			return m.orch.SendChat(ctx, input)
		})
	case tea.KeyCtrlT:
		return m, m.runFlow(studio.FlowTranscription, m.orch.Transcribe)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.ui.viewport, cmd = m.ui.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.ui.chatInput, cmd = m.ui.chatInput.Update(msg)
	m.orch.SetDraft(m.ui.chatInput.Value())
	return m, cmd
}

func (m Model) handleVoiceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlO:
		return m, m.runFlow(studio.FlowVoice, m.orch.StartVoice)
	case tea.KeyCtrlX:
		orch := m.orch
		return m, func() tea.Msg {
			return FlowDoneMsg{Flow: studio.FlowVoice, Err: orch.StopVoice()}
		}
	case tea.KeyEnter:
		text := m.ui.voiceInput.Value()
		m.ui.voiceInput.Reset()
		return m, m.runFlow(studio.FlowVoice, func(ctx context.Context) error {
			return m.orch.SendVoiceText(ctx, text)
		})
	}

	var cmd tea.Cmd
	m.ui.voiceInput, cmd = m.ui.voiceInput.Update(msg)
	return m, cmd
}

// handleCommand 执行对话输入框中的斜杠命令
func (m Model) handleCommand(c *Command) tea.Cmd {
	switch c.Type {
	case CommandTypeLesson:
		topic := c.Arg
		if topic == "" {
			topic = m.snap.Topic
		}
		return m.runFlow(studio.FlowLesson, func(ctx context.Context) error {
			return m.orch.GenerateLesson(ctx, topic)
		})
	case CommandTypeIllustrate:
		return m.runFlow(studio.FlowIllustration, m.orch.GenerateIllustration)
	case CommandTypeEditIllustration:
		return m.runFlow(studio.FlowIllustrationEdit, m.orch.EditIllustration)
	case CommandTypeVideo:
		return m.runFlow(studio.FlowVideo, m.orch.GenerateVideo)
	case CommandTypeAnalyze:
		return m.runFlow(studio.FlowAnalysis, m.orch.AnalyzeCode)
	case CommandTypeDictate:
		return m.runFlow(studio.FlowTranscription, m.orch.Transcribe)
	case CommandTypeExample:
		orch := m.orch
		return func() tea.Msg {
			if !orch.LoadExampleIntoPlayground() {
				return StatusMsg{Text: "当前课程中没有示例代码"}
			}
			return StateChangedMsg{}
		}
	case CommandTypeExport:
		dir := c.Arg
		if dir == "" {
			dir = m.exportDir
		}
		return m.export(dir)
	default:
		return func() tea.Msg {
			return StatusMsg{Text: "未知命令: " + c.Raw}
		}
	}
}

func (m Model) export(dir string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		files, err := orch.ExportLesson(dir)
		return ExportDoneMsg{Dir: dir, Files: files, Err: err}
	}
}

// refresh 重新读取快照并同步组件内容
func (m *Model) refresh() {
	m.snap = m.orch.Snapshot()
	s := m.snap

	if s.DraftRevision != m.draftRevision {
		m.ui.chatInput.SetValue(s.Draft)
		m.ui.chatInput.CursorEnd()
		m.draftRevision = s.DraftRevision
	}
	if s.Code != m.ui.editor.Value() {
		m.ui.editor.SetValue(s.Code)
	}
	m.focusForView()

	w := m.ui.ContentWidth()
	switch s.View {
	case studio.ViewLessons:
		m.ui.viewport.Width = w - topicsWidth
		m.ui.LayoutViewport(2)
		m.ui.viewport.SetContent(renderLesson(s, m.ui.viewport.Width))
	case studio.ViewPlayground:
		m.ui.viewport.Width = w
		m.ui.LayoutViewport(editorHeight + 1)
		m.ui.viewport.SetContent(renderAnalysis(s, w))
	case studio.ViewChat:
		m.ui.viewport.Width = w
		m.ui.LayoutViewport(inputHeight + 1)
		m.ui.viewport.SetContent(renderChat(s, w))
		m.ui.viewport.GotoBottom()
	case studio.ViewVoice:
		m.ui.viewport.Width = w
		m.ui.LayoutViewport(inputHeight + 1)
		m.ui.viewport.SetContent(renderVoice(s, w))
		m.ui.viewport.GotoBottom()
	}
}

func (m *Model) focusForView() {
	switch m.snap.View {
	case studio.ViewPlayground:
		m.ui.Focus(&m.ui.editor)
	case studio.ViewChat:
		m.ui.Focus(&m.ui.chatInput)
	case studio.ViewVoice:
		m.ui.Focus(&m.ui.voiceInput)
	default:
		m.ui.Focus(nil)
	}
}

const topicsWidth = 28

func (m Model) View() string {
	if !m.ui.IsReady() {
		return "初始化中..."
	}
	s := m.snap

	var content string
	switch s.View {
	case studio.ViewLessons:
		topics := lipgloss.NewStyle().Width(topicsWidth).Render(renderTopics(s, m.topicCursor))
		body := lipgloss.JoinVertical(lipgloss.Left, renderMedia(s), m.ui.viewport.View())
		content = lipgloss.JoinHorizontal(lipgloss.Top, topics, body)
	case studio.ViewPlayground:
		content = lipgloss.JoinVertical(lipgloss.Left, m.ui.editor.View(), m.ui.viewport.View())
	case studio.ViewChat:
		content = lipgloss.JoinVertical(lipgloss.Left, m.ui.viewport.View(), m.ui.chatInput.View())
	case studio.ViewVoice:
		content = lipgloss.JoinVertical(lipgloss.Left, m.ui.viewport.View(), m.ui.voiceInput.View())
	}

	header := titleStyle.Render(viewLabels[s.View])
	if s.View == studio.ViewLessons {
		header += dimStyle.Render("  " + s.Topic)
	}
	main := lipgloss.JoinVertical(lipgloss.Left, header, content)
	nav := renderNav(s, m.ui.spinner.View(), m.ui.height-2)

	var footer strings.Builder
	if m.status != "" {
		footer.WriteString(statusStyle.Render(m.status) + "\n")
	}
	footer.WriteString(helpStyle.Render(helpText(s.View)))

	return lipgloss.JoinHorizontal(lipgloss.Top, nav, " ", main) + "\n" + footer.String()
}
