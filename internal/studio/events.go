package studio

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// Event 事件接口
type Event interface {
	// Type 事件类型
	Type() string
	// Data 事件数据
	Data() interface{}
	// Timestamp 事件时间戳
	Timestamp() time.Time
}

// EventHandler 事件处理器接口
type EventHandler interface {
	// CanHandle 检查是否可以处理该事件
	CanHandle(event Event) bool

	// Handle 处理事件
	Handle(event Event) error

	// Priority 处理优先级，数值越小优先级越高
	Priority() int
}

// EventBus 事件总线接口
type EventBus interface {
	Subscribe(eventType string, handler EventHandler)
	Unsubscribe(eventType string, handler EventHandler)
	Publish(event Event)
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string, data interface{}) *BaseEvent {
	return &BaseEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
	}
}

func (e *BaseEvent) Type() string         { return e.eventType }
func (e *BaseEvent) Data() interface{}    { return e.data }
func (e *BaseEvent) Timestamp() time.Time { return e.timestamp }

// HandlerFunc 把普通函数包装成 EventHandler
type HandlerFunc struct {
	Fn    func(Event) error
	Order int
}

func (h *HandlerFunc) CanHandle(Event) bool { return h.Fn != nil }
func (h *HandlerFunc) Handle(e Event) error { return h.Fn(e) }
func (h *HandlerFunc) Priority() int        { return h.Order }

// MemoryEventBus 内存事件总线，处理器在发布者的协程中同步执行
type MemoryEventBus struct {
	mu   sync.RWMutex
	subs map[string][]EventHandler
}

func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{subs: make(map[string][]EventHandler)}
}

// Subscribe 按优先级插入，同优先级保持订阅顺序
func (bus *MemoryEventBus) Subscribe(eventType string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	list := bus.subs[eventType]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Priority() > handler.Priority()
	})
	bus.subs[eventType] = slices.Insert(list, i, handler)
}

func (bus *MemoryEventBus) Unsubscribe(eventType string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	list := bus.subs[eventType]
	if i := slices.Index(list, handler); i >= 0 {
		bus.subs[eventType] = slices.Delete(list, i, i+1)
	}
}

// Publish 处理器可以在回调里订阅或退订，错误被忽略
func (bus *MemoryEventBus) Publish(event Event) {
	bus.mu.RLock()
	list := slices.Clone(bus.subs[event.Type()])
	bus.mu.RUnlock()

	for _, h := range list {
		if h.CanHandle(event) {
			_ = h.Handle(event)
		}
	}
}

// 事件类型常量
const (
	EventTypeStateChanged = "state.changed"
	EventTypeFlowStarted  = "flow.started"
	EventTypeFlowFinished = "flow.finished"
	EventTypeFlowFailed   = "flow.failed"
	EventTypeVoiceMessage = "voice.message"
)

// FlowEvent flow.* 事件的数据
type FlowEvent struct {
	Flow Flow
	Err  error
}
