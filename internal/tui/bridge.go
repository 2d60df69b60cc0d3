package tui

import (
	"github.com/Zacy-Sokach/PolyTutor/internal/studio"
	tea "github.com/charmbracelet/bubbletea"
)

// EventBridge 把编排器事件转换成 bubbletea 消息
// 多个 state.changed 合并成一次通知，处理器永远不会阻塞发布者
type EventBridge struct {
	bus     studio.EventBus
	handler *studio.HandlerFunc
	notify  chan struct{}
}

// NewEventBridge 订阅 bus 上的 state.changed 事件
func NewEventBridge(bus studio.EventBus) *EventBridge {
	b := &EventBridge{bus: bus, notify: make(chan struct{}, 1)}
	b.handler = &studio.HandlerFunc{Fn: func(studio.Event) error {
		select {
		case b.notify <- struct{}{}:
		default:
		}
		return nil
	}}
	bus.Subscribe(studio.EventTypeStateChanged, b.handler)
	return b
}

// Listen 等待下一次状态变化
func (b *EventBridge) Listen() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-b.notify; !ok {
			return nil
		}
		return StateChangedMsg{}
	}
}

// Close 取消订阅
func (b *EventBridge) Close() {
	b.bus.Unsubscribe(studio.EventTypeStateChanged, b.handler)
}
