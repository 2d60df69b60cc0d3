package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

const (
	navWidth     = 18
	inputHeight  = 3
	editorHeight = 12
	// chromeHeight 标题、状态行和帮助行占用的高度
	chromeHeight = 4
)

// UIStateManager 管理各视图的 UI 组件和尺寸
type UIStateManager struct {
	viewport   viewport.Model
	chatInput  textarea.Model
	voiceInput textarea.Model
	editor     textarea.Model
	spinner    spinner.Model

	width  int
	height int
	ready  bool
}

// NewUIStateManager 创建新的UI状态管理器
func NewUIStateManager(code string) *UIStateManager {
	chat := newInput("输入你的问题，Enter 发送，/lesson 主题 切换课程...")
	voice := newInput("输入文字发送给语音导师...")

	editor := textarea.New()
	editor.Placeholder = "在这里编写代码..."
	editor.CharLimit = 0
	editor.ShowLineNumbers = true
	editor.SetWidth(80)
	editor.SetHeight(editorHeight)
	editor.SetValue(code)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return &UIStateManager{
		viewport:   viewport.New(80, 20),
		chatInput:  chat,
		voiceInput: voice,
		editor:     editor,
		spinner:    sp,
		width:      80 + navWidth,
		height:     24,
	}
}

func newInput(placeholder string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(inputHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	return ta
}

// IsReady 是否已收到窗口尺寸
func (m *UIStateManager) IsReady() bool {
	return m.ready
}

// ContentWidth 导航栏右侧的可用宽度
func (m *UIStateManager) ContentWidth() int {
	w := m.width - navWidth - 2
	if w < 20 {
		w = 20
	}
	return w
}

// Resize 按窗口尺寸调整所有组件
func (m *UIStateManager) Resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	w := m.ContentWidth()
	m.chatInput.SetWidth(w)
	m.voiceInput.SetWidth(w)
	m.editor.SetWidth(w)
	m.viewport.Width = w
}

// LayoutViewport 设置视口高度，reserved 是当前视图中视口以外组件的高度
func (m *UIStateManager) LayoutViewport(reserved int) {
	h := m.height - chromeHeight - reserved
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h
}

// Focus 只让当前视图的输入组件获得焦点
func (m *UIStateManager) Focus(target *textarea.Model) {
	for _, ta := range []*textarea.Model{&m.chatInput, &m.voiceInput, &m.editor} {
		if ta == target {
			ta.Focus()
		} else {
			ta.Blur()
		}
	}
}
