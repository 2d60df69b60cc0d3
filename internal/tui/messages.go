package tui

import "github.com/Zacy-Sokach/PolyTutor/internal/studio"

// StateChangedMsg 编排器状态有变化，需要重新读取快照
type StateChangedMsg struct{}

// FlowDoneMsg 一个操作结束，Err 只记录日志不显示
type FlowDoneMsg struct {
	Flow studio.Flow
	Err  error
}

// ExportDoneMsg 课程导出结束
type ExportDoneMsg struct {
	Dir   string
	Files []string
	Err   error
}

// StatusMsg 在帮助行上方显示一条临时提示
type StatusMsg struct {
	Text string
}
