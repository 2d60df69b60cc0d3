package studio

import (
	"strconv"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
)

// View 当前激活的视图
type View int

const (
	ViewLessons View = iota
	ViewPlayground
	ViewChat
	ViewVoice
)

// Views 导航栏中的视图顺序
func Views() []View {
	return []View{ViewLessons, ViewPlayground, ViewChat, ViewVoice}
}

func (v View) String() string {
	switch v {
	case ViewLessons:
		return "lessons"
	case ViewPlayground:
		return "playground"
	case ViewChat:
		return "chat"
	case ViewVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// Flow 用户触发的一类操作
type Flow string

const (
	FlowLesson           Flow = "lesson"
	FlowIllustration     Flow = "illustration"
	FlowIllustrationEdit Flow = "illustration_edit"
	FlowVideo            Flow = "video"
	FlowAnalysis         Flow = "analysis"
	FlowChat             Flow = "chat"
	FlowTranscription    Flow = "transcription"
	FlowVoice            Flow = "voice"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TurnStatus 两阶段追加：用户轮次先 pending，调用结束后变为 confirmed 或 failed
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"
	TurnConfirmed TurnStatus = "confirmed"
	TurnFailed    TurnStatus = "failed"
)

type ChatTurn struct {
	ID     string
	Role   Role
	Text   string
	Status TurnStatus
}

// LessonContent 课程正文和所属主题，整体替换
type LessonContent struct {
	Topic string
	Text  string
}

type VoiceStatus string

const (
	VoiceIdle       VoiceStatus = "idle"
	VoiceConnecting VoiceStatus = "connecting"
	VoiceOpen       VoiceStatus = "open"
	VoiceClosed     VoiceStatus = "closed"
	VoiceFailed     VoiceStatus = "failed"
)

// VoiceLine 语音会话的一行转写；Final 为 false 时仍在追加
type VoiceLine struct {
	Speaker Role
	Text    string
	Final   bool
}

type VoiceState struct {
	Status     VoiceStatus
	Transcript []VoiceLine
	AudioBytes int
	LastError  string
}

// Snapshot 渲染用的状态副本
type Snapshot struct {
	View          View
	Topic         string
	Lesson        *LessonContent
	Code          string
	Analysis      *gateway.CodeAnalysisResult
	Chat          []ChatTurn
	Draft         string
	DraftRevision int
	Image         string
	Video         *gateway.VideoHandle
	Busy          bool
	InFlight      map[Flow]int
	Transcribing  bool
	Voice         VoiceState
}

// Loading 指定操作是否在进行中
func (s Snapshot) Loading(flow Flow) bool {
	return s.InFlight[flow] > 0
}

// BugSummary 分析结果中 bug 列表的摘要
func BugSummary(result *gateway.CodeAnalysisResult) string {
	if result == nil {
		return ""
	}
	if len(result.Bugs) == 0 {
		return "No bugs detected."
	}
	if len(result.Bugs) == 1 {
		return "1 bug found."
	}
	return strconv.Itoa(len(result.Bugs)) + " bugs found."
}
