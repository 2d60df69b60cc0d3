package studio

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	"github.com/google/uuid"
)

// DefaultTranscriptionDelay 模拟听写的等待时间
const DefaultTranscriptionDelay = 1500 * time.Millisecond

// ErrNoLesson 当前没有课程内容
var ErrNoLesson = errors.New("当前没有课程内容")

// slot 请求令牌的分组，同一 slot 内只有最后一次请求的结果会被保存
type slot string

const (
	slotLesson   slot = "lesson"
	slotImage    slot = "image"
	slotVideo    slot = "video"
	slotAnalysis slot = "analysis"
)

// Options 编排器的可选依赖
type Options struct {
	Bus                EventBus
	Logger             *logger.Logger
	Sleeper            utils.Sleeper
	TranscriptionDelay time.Duration
	InitialTopic       string
	InitialCode        string
	// RemoveFile 删除被替换的视频文件，默认 os.Remove
	RemoveFile func(path string) error
}

// Orchestrator 持有会话状态并按顺序执行用户触发的操作
type Orchestrator struct {
	gw    gateway.Gateway
	chat  gateway.TutorChat
	bus   EventBus
	log   *logger.Logger
	sleep utils.Sleeper
	delay time.Duration
	remove func(path string) error
	// newToken 生成请求令牌和轮次 ID，测试中可替换
	newToken func() string

	mu            sync.Mutex
	view          View
	topic         string
	lesson        *LessonContent
	code          string
	analysis      *gateway.CodeAnalysisResult
	turns         []ChatTurn
	draft         string
	draftRevision int
	image         string
	video         *gateway.VideoHandle
	inFlight      map[Flow]int
	tokens        map[slot]string
	transcribing  bool

	voice        VoiceState
	voiceSession gateway.VoiceSession
	voiceToken   string
}

// New 创建编排器；chat 由调用方创建并负责关闭
func New(gw gateway.Gateway, chat gateway.TutorChat, opts Options) *Orchestrator {
	if opts.Bus == nil {
		opts.Bus = NewMemoryEventBus()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = utils.TimerSleeper{}
	}
	if opts.TranscriptionDelay <= 0 {
		opts.TranscriptionDelay = DefaultTranscriptionDelay
	}
	if opts.InitialTopic == "" {
		opts.InitialTopic = Topics[0]
	}
	if opts.InitialCode == "" {
		opts.InitialCode = DefaultCode
	}
	if opts.RemoveFile == nil {
		opts.RemoveFile = os.Remove
	}

	return &Orchestrator{
		gw:       gw,
		chat:     chat,
		bus:      opts.Bus,
		log:      opts.Logger,
		sleep:    opts.Sleeper,
		delay:    opts.TranscriptionDelay,
		remove:   opts.RemoveFile,
		newToken: uuid.NewString,
		view:     ViewLessons,
		topic:    opts.InitialTopic,
		code:     opts.InitialCode,
		inFlight: make(map[Flow]int),
		tokens:   make(map[slot]string),
		voice:    VoiceState{Status: VoiceIdle},
	}
}

// Bus 返回编排器发布事件的总线
func (o *Orchestrator) Bus() EventBus { return o.bus }

// SetView 切换视图
func (o *Orchestrator) SetView(v View) {
	o.mu.Lock()
	o.view = v
	o.mu.Unlock()
	o.changed()
}

// SetTopic 选择主题，不会触发生成
func (o *Orchestrator) SetTopic(topic string) {
	o.mu.Lock()
	o.topic = topic
	o.mu.Unlock()
	o.changed()
}

// SetCode 更新代码练习区内容
func (o *Orchestrator) SetCode(code string) {
	o.mu.Lock()
	o.code = code
	o.mu.Unlock()
}

// SetDraft 记录输入框内容，不增加修订号
func (o *Orchestrator) SetDraft(draft string) {
	o.mu.Lock()
	o.draft = draft
	o.mu.Unlock()
}

// Busy 是否有未完成的远程调用
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busyLocked()
}

func (o *Orchestrator) busyLocked() bool {
	for _, n := range o.inFlight {
		if n > 0 {
			return true
		}
	}
	return false
}

// Snapshot 返回当前状态的副本
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		View:          o.view,
		Topic:         o.topic,
		Code:          o.code,
		Chat:          append([]ChatTurn(nil), o.turns...),
		Draft:         o.draft,
		DraftRevision: o.draftRevision,
		Image:         o.image,
		Busy:          o.busyLocked(),
		InFlight:      make(map[Flow]int, len(o.inFlight)),
		Transcribing:  o.transcribing,
		Voice: VoiceState{
			Status:     o.voice.Status,
			Transcript: append([]VoiceLine(nil), o.voice.Transcript...),
			AudioBytes: o.voice.AudioBytes,
			LastError:  o.voice.LastError,
		},
	}
	if o.lesson != nil {
		l := *o.lesson
		s.Lesson = &l
	}
	if o.analysis != nil {
		a := *o.analysis
		a.Bugs = append([]string(nil), o.analysis.Bugs...)
		a.Improvements = append([]string(nil), o.analysis.Improvements...)
		s.Analysis = &a
	}
	if o.video != nil {
		v := *o.video
		s.Video = &v
	}
	for f, n := range o.inFlight {
		if n > 0 {
			s.InFlight[f] = n
		}
	}
	return s
}

// beginLocked 标记操作开始并为 slot 签发新令牌；必须持有锁
func (o *Orchestrator) beginLocked(flow Flow, sl slot) string {
	o.inFlight[flow]++
	if sl == "" {
		return ""
	}
	token := o.newToken()
	o.tokens[sl] = token
	return token
}

// finish 释放 busy 并发布结果事件，失败时记录日志
func (o *Orchestrator) finish(flow Flow, topic string, err error) {
	o.mu.Lock()
	if o.inFlight[flow] > 0 {
		o.inFlight[flow]--
	}
	o.mu.Unlock()

	if err != nil {
		o.logFailure(flow, topic, err)
		o.bus.Publish(NewBaseEvent(EventTypeFlowFailed, FlowEvent{Flow: flow, Err: err}))
	} else {
		o.bus.Publish(NewBaseEvent(EventTypeFlowFinished, FlowEvent{Flow: flow}))
	}
	o.changed()
}

func (o *Orchestrator) started(flow Flow) {
	o.bus.Publish(NewBaseEvent(EventTypeFlowStarted, FlowEvent{Flow: flow}))
	o.changed()
}

// currentLocked 令牌仍是 slot 的最新令牌
func (o *Orchestrator) currentLocked(sl slot, token string) bool {
	return o.tokens[sl] == token
}

func (o *Orchestrator) changed() {
	o.bus.Publish(NewBaseEvent(EventTypeStateChanged, nil))
}

func (o *Orchestrator) logFailure(flow Flow, topic string, err error) {
	kvs := []interface{}{"flow", string(flow), "topic", topic, "error", err}
	if kind := gateway.KindOf(err); kind != "" {
		kvs = append(kvs, "kind", string(kind))
	}
	if code := gateway.StatusCode(err); code != 0 {
		kvs = append(kvs, "status", code)
	}
	if errors.Is(err, context.Canceled) {
		o.log.Info("操作已取消", kvs...)
		return
	}
	o.log.Warn("操作失败", kvs...)
}

// EnsureLesson 没有课程且没有课程请求在进行时，为当前主题生成课程
func (o *Orchestrator) EnsureLesson(ctx context.Context) error {
	o.mu.Lock()
	need := o.lesson == nil && o.inFlight[FlowLesson] == 0
	topic := o.topic
	o.mu.Unlock()
	if !need {
		return nil
	}
	return o.GenerateLesson(ctx, topic)
}

// GenerateLesson 生成课程；先清空插图和视频，失败时保留旧课程
func (o *Orchestrator) GenerateLesson(ctx context.Context, topic string) error {
	o.mu.Lock()
	oldVideo := o.video
	o.image = ""
	o.video = nil
	// 进行中的插图和视频请求作废
	delete(o.tokens, slotImage)
	delete(o.tokens, slotVideo)
	token := o.beginLocked(FlowLesson, slotLesson)
	o.mu.Unlock()
	o.discardVideo(oldVideo)
	o.started(FlowLesson)

	text, err := o.gw.GenerateLesson(ctx, topic)
	if err == nil {
		o.mu.Lock()
		if o.currentLocked(slotLesson, token) {
			o.lesson = &LessonContent{Topic: topic, Text: text}
			o.topic = topic
		}
		o.mu.Unlock()
	}
	o.finish(FlowLesson, topic, err)
	return err
}

// GenerateIllustration 为当前主题生成插图，结果可能为空
func (o *Orchestrator) GenerateIllustration(ctx context.Context) error {
	o.mu.Lock()
	topic := o.topic
	token := o.beginLocked(FlowIllustration, slotImage)
	o.mu.Unlock()
	o.started(FlowIllustration)

	image, err := o.gw.GenerateConceptImage(ctx, topic)
	if err == nil {
		o.mu.Lock()
		if o.currentLocked(slotImage, token) {
			o.image = image
		}
		o.mu.Unlock()
	}
	o.finish(FlowIllustration, topic, err)
	return err
}

// EditIllustration 用固定指令编辑当前插图；没有插图时什么也不做
func (o *Orchestrator) EditIllustration(ctx context.Context) error {
	o.mu.Lock()
	image := o.image
	if image == "" {
		o.mu.Unlock()
		return nil
	}
	topic := o.topic
	token := o.beginLocked(FlowIllustrationEdit, slotImage)
	o.mu.Unlock()
	o.started(FlowIllustrationEdit)

	edited, err := o.gw.EditConceptImage(ctx, image, EditInstruction)
	if err == nil {
		o.mu.Lock()
		if o.currentLocked(slotImage, token) {
			o.image = edited
		}
		o.mu.Unlock()
	}
	o.finish(FlowIllustrationEdit, topic, err)
	return err
}

// GenerateVideo 为当前主题生成视频，阻塞直到轮询结束
func (o *Orchestrator) GenerateVideo(ctx context.Context) error {
	o.mu.Lock()
	topic := o.topic
	token := o.beginLocked(FlowVideo, slotVideo)
	o.mu.Unlock()
	o.started(FlowVideo)

	video, err := o.gw.GenerateConceptVideo(ctx, topic)
	if err == nil {
		// 没被采用的文件（旧视频或过期结果）随即删除
		var unused *gateway.VideoHandle
		o.mu.Lock()
		if o.currentLocked(slotVideo, token) {
			unused = o.video
			o.video = video
		} else {
			unused = video
		}
		kept := o.video
		o.mu.Unlock()
		if unused != nil && (kept == nil || kept.Path != unused.Path) {
			o.discardVideo(unused)
		}
	}
	o.finish(FlowVideo, topic, err)
	return err
}

// AnalyzeCode 分析代码练习区的当前内容
func (o *Orchestrator) AnalyzeCode(ctx context.Context) error {
	o.mu.Lock()
	code := o.code
	topic := o.topic
	token := o.beginLocked(FlowAnalysis, slotAnalysis)
	o.mu.Unlock()
	o.started(FlowAnalysis)

	result, err := o.gw.AnalyzeCode(ctx, code)
	if err == nil {
		o.mu.Lock()
		if o.currentLocked(slotAnalysis, token) {
			o.analysis = result
		}
		o.mu.Unlock()
	}
	o.finish(FlowAnalysis, topic, err)
	return err
}

// SendChat 发送对话消息：用户轮次先以 pending 追加，调用结束后确认或标记失败
func (o *Orchestrator) SendChat(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	o.mu.Lock()
	id := o.newToken()
	o.turns = append(o.turns, ChatTurn{ID: id, Role: RoleUser, Text: input, Status: TurnPending})
	o.draft = ""
	o.draftRevision++
	topic := o.topic
	o.beginLocked(FlowChat, "")
	o.mu.Unlock()
	o.started(FlowChat)

	reply, err := o.chat.Send(ctx, input)

	o.mu.Lock()
	status := TurnConfirmed
	if err != nil {
		status = TurnFailed
	}
	for i := range o.turns {
		if o.turns[i].ID == id {
			o.turns[i].Status = status
			break
		}
	}
	if err == nil {
		o.turns = append(o.turns, ChatTurn{ID: o.newToken(), Role: RoleModel, Text: reply, Status: TurnConfirmed})
	}
	o.mu.Unlock()

	o.finish(FlowChat, topic, err)
	return err
}

// Transcribe 模拟听写：等待固定时间后把预设问题填入输入框
func (o *Orchestrator) Transcribe(ctx context.Context) error {
	o.mu.Lock()
	if o.transcribing {
		o.mu.Unlock()
		return nil
	}
	o.transcribing = true
	o.mu.Unlock()
	o.changed()

	err := o.sleep.Sleep(ctx, o.delay)

	o.mu.Lock()
	if err == nil {
		o.draft = CannedTranscription
		o.draftRevision++
	}
	o.transcribing = false
	o.mu.Unlock()
	o.changed()
	return err
}

// LoadExampleIntoPlayground 把课程中的第一段代码放入代码练习区并切换视图
func (o *Orchestrator) LoadExampleIntoPlayground() bool {
	o.mu.Lock()
	if o.lesson == nil {
		o.mu.Unlock()
		return false
	}
	_, code, ok := ExtractCodeExample(o.lesson.Text)
	if ok {
		o.code = code
		o.view = ViewPlayground
	}
	o.mu.Unlock()
	if ok {
		o.changed()
	}
	return ok
}

// ExportLesson 把当前课程和插图写入 dir，返回写入的文件
func (o *Orchestrator) ExportLesson(dir string) ([]string, error) {
	o.mu.Lock()
	var lesson LessonContent
	has := o.lesson != nil
	if has {
		lesson = *o.lesson
	}
	image := o.image
	o.mu.Unlock()

	if !has {
		return nil, ErrNoLesson
	}
	files, err := exportLesson(dir, lesson, image)
	if err != nil {
		o.log.Warn("导出课程失败", "topic", lesson.Topic, "dir", dir, "error", err)
		return files, err
	}
	o.log.Info("课程已导出", "topic", lesson.Topic, "files", len(files))
	return files, nil
}

// Shutdown 关闭语音会话并删除视频文件；对话会话由创建者关闭
func (o *Orchestrator) Shutdown() {
	if err := o.StopVoice(); err != nil {
		o.log.Warn("关闭语音会话失败", "error", err)
	}

	o.mu.Lock()
	video := o.video
	o.video = nil
	o.mu.Unlock()
	o.discardVideo(video)
}

// discardVideo 删除不再引用的视频文件
func (o *Orchestrator) discardVideo(v *gateway.VideoHandle) {
	if v == nil || v.Path == "" {
		return
	}
	if err := o.remove(v.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.log.Warn("删除视频文件失败", "path", v.Path, "error", err)
	}
}
