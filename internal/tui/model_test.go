package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
	"github.com/Zacy-Sokach/PolyTutor/internal/studio"
	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) AnalyzeCode(ctx context.Context, code string) (*gateway.CodeAnalysisResult, error) {
	return &gateway.CodeAnalysisResult{
		Explanation:     "Prints numbers.",
		Bugs:            []string{},
		Improvements:    []string{"Add a docstring."},
		SimulatedOutput: "0\n1\n2",
	}, nil
}

func (stubGateway) GenerateLesson(ctx context.Context, topic string) (string, error) {
	return "# " + topic + "\n\n```python\nprint('" + topic + "')\n```\n", nil
}

func (stubGateway) NewTutorChat(ctx context.Context) (gateway.TutorChat, error) {
	return stubChat{}, nil
}

func (stubGateway) GenerateConceptImage(ctx context.Context, concept string) (string, error) {
	return gateway.EncodeDataURI("image/png", []byte("png")), nil
}

func (stubGateway) EditConceptImage(ctx context.Context, image, instruction string) (string, error) {
	return image, nil
}

func (stubGateway) GenerateConceptVideo(ctx context.Context, concept string) (*gateway.VideoHandle, error) {
	return &gateway.VideoHandle{Path: "/tmp/v.mp4", MIMEType: "video/mp4", Size: 2048}, nil
}

func (stubGateway) ConnectVoiceTutor(ctx context.Context, h gateway.VoiceHandlers) (gateway.VoiceSession, error) {
	return nil, &gateway.Error{Kind: gateway.KindRemote, Op: "ConnectVoiceTutor"}
}

// flakyLessonGateway 第一次生成课程失败，之后成功
type flakyLessonGateway struct {
	stubGateway
	lessonCalls int
}

func (g *flakyLessonGateway) GenerateLesson(ctx context.Context, topic string) (string, error) {
	g.lessonCalls++
	if g.lessonCalls == 1 {
		return "", &gateway.Error{Kind: gateway.KindRemote, Op: "GenerateLesson"}
	}
	return "# " + topic, nil
}

type stubChat struct{}

func (stubChat) Send(ctx context.Context, msg string) (string, error) { return "**reply** to " + msg, nil }
func (stubChat) Close() error                                         { return nil }

func newTestModel(t *testing.T) (Model, *studio.Orchestrator) {
	t.Helper()
	orch := studio.New(stubGateway{}, stubChat{}, studio.Options{
		Sleeper:    utils.SleeperFunc(func(ctx context.Context, d time.Duration) error { return nil }),
		RemoveFile: func(string) error { return nil },
	})
	m := NewModel(orch, Options{ExportDir: t.TempDir()})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), orch
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(key)
	return updated.(Model), cmd
}

// runCmd 执行命令并把结果消息送回模型
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewNavigation(t *testing.T) {
	m, orch := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})
	assert.Equal(t, studio.ViewChat, orch.Snapshot().View)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, studio.ViewVoice, orch.Snapshot().View)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, studio.ViewLessons, orch.Snapshot().View)

	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, studio.ViewVoice, orch.Snapshot().View)
}

func TestLessonKeysRunFlows(t *testing.T) {
	m, orch := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	s := orch.Snapshot()
	require.NotNil(t, s.Lesson)
	assert.Equal(t, studio.Topics[2], s.Lesson.Topic)
	assert.Contains(t, m.View(), studio.Topics[2])

	m, cmd = press(t, m, runes("i"))
	m = runCmd(t, m, cmd)
	assert.NotEmpty(t, orch.Snapshot().Image)
	assert.Contains(t, m.View(), "image/png")

	m, cmd = press(t, m, runes("v"))
	m = runCmd(t, m, cmd)
	assert.Contains(t, m.View(), "/tmp/v.mp4")

	m, _ = press(t, m, runes("p"))
	s = orch.Snapshot()
	assert.Equal(t, studio.ViewPlayground, s.View)
	assert.Equal(t, "print('"+studio.Topics[2]+"')\n", s.Code)
	assert.Equal(t, s.Code, m.ui.editor.Value())
}

func TestPlaygroundAnalysisShowsNoBugs(t *testing.T) {
	m, orch := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF2})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = runCmd(t, m, cmd)

	require.NotNil(t, orch.Snapshot().Analysis)
	assert.Contains(t, m.View(), "No bugs detected.")
}

func TestChatSendAndWhitespace(t *testing.T) {
	m, orch := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})

	m, _ = press(t, m, runes("   "))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "blank input does not start a chat flow")
	assert.Empty(t, orch.Snapshot().Chat)

	m.ui.chatInput.SetValue("what is a loop")
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	s := orch.Snapshot()
	require.Len(t, s.Chat, 2)
	assert.Equal(t, studio.TurnConfirmed, s.Chat[0].Status)
	assert.Empty(t, m.ui.chatInput.Value(), "input is cleared after sending")
	assert.Contains(t, m.View(), "what is a loop")
}

func TestChatDoubleEnterSendsOnce(t *testing.T) {
	m, orch := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})

	m.ui.chatInput.SetValue("hello")
	m, first := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, first)
	assert.Empty(t, m.ui.chatInput.Value(), "input is cleared before the reply arrives")

	m, second := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, second)

	_ = runCmd(t, m, first)
	s := orch.Snapshot()
	require.Len(t, s.Chat, 2)
	assert.Equal(t, "hello", s.Chat[0].Text)
}

func TestChatSlashCommand(t *testing.T) {
	m, orch := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})

	m.ui.chatInput.SetValue("/lesson Recursion")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_ = runCmd(t, m, cmd)

	s := orch.Snapshot()
	require.NotNil(t, s.Lesson)
	assert.Equal(t, "Recursion", s.Topic)
	assert.Empty(t, s.Chat, "commands are not sent to the tutor")
}

func TestReturningToLessonsRetriesFailedLesson(t *testing.T) {
	gw := &flakyLessonGateway{}
	orch := studio.New(gw, stubChat{}, studio.Options{})
	m := NewModel(orch, Options{ExportDir: t.TempDir()})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)

	require.Error(t, orch.EnsureLesson(context.Background()))
	require.Nil(t, orch.Snapshot().Lesson)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	_ = runCmd(t, m, cmd)

	assert.Equal(t, 2, gw.lessonCalls)
	assert.NotNil(t, orch.Snapshot().Lesson)

	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Nil(t, cmd, "no retry once a lesson exists")
}

func TestDictationFillsInput(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m = runCmd(t, m, cmd)

	assert.Equal(t, studio.CannedTranscription, m.ui.chatInput.Value())
}

func TestVoiceConnectFailureIsNotRenderedAsError(t *testing.T) {
	m, orch := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF4})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m = runCmd(t, m, cmd)

	assert.Equal(t, studio.VoiceFailed, orch.Snapshot().Voice.Status)
	assert.NotContains(t, m.View(), "RemoteError")
}

func TestExportKey(t *testing.T) {
	m, _ := newTestModel(t)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	m, cmd = press(t, m, runes("x"))
	m = runCmd(t, m, cmd)
	assert.True(t, strings.HasPrefix(m.status, "已导出 2 个文件"), m.status)
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEventBridgeCoalesces(t *testing.T) {
	bus := studio.NewMemoryEventBus()
	b := NewEventBridge(bus)
	for i := 0; i < 5; i++ {
		bus.Publish(studio.NewBaseEvent(studio.EventTypeStateChanged, nil))
	}
	assert.IsType(t, StateChangedMsg{}, b.Listen()())
	select {
	case <-b.notify:
		t.Fatal("notifications should be coalesced")
	default:
	}

	b.Close()
	bus.Publish(studio.NewBaseEvent(studio.EventTypeStateChanged, nil))
	assert.Len(t, b.notify, 0)
}

func TestEscCancelsInFlightContext(t *testing.T) {
	m, _ := newTestModel(t)
	old := m.ctx

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.ErrorIs(t, old.Err(), context.Canceled)
	assert.NoError(t, m.ctx.Err(), "a fresh context is ready for the next flow")
	assert.Equal(t, "已取消进行中的操作", m.status)
}
