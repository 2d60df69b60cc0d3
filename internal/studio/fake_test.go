package studio

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
)

// fakeGateway 每个操作都可以用函数覆盖，并记录调用次数
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	analyze func(ctx context.Context, code string) (*gateway.CodeAnalysisResult, error)
	lesson  func(ctx context.Context, topic string) (string, error)
	image   func(ctx context.Context, concept string) (string, error)
	edit    func(ctx context.Context, image, instruction string) (string, error)
	video   func(ctx context.Context, concept string) (*gateway.VideoHandle, error)
	voice   func(ctx context.Context, h gateway.VoiceHandlers) (gateway.VoiceSession, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int)}
}

func (f *fakeGateway) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) AnalyzeCode(ctx context.Context, code string) (*gateway.CodeAnalysisResult, error) {
	f.record("AnalyzeCode")
	if f.analyze == nil {
		return &gateway.CodeAnalysisResult{Bugs: []string{}, Improvements: []string{}}, nil
	}
	return f.analyze(ctx, code)
}

func (f *fakeGateway) GenerateLesson(ctx context.Context, topic string) (string, error) {
	f.record("GenerateLesson")
	if f.lesson == nil {
		return "# " + topic, nil
	}
	return f.lesson(ctx, topic)
}

func (f *fakeGateway) NewTutorChat(ctx context.Context) (gateway.TutorChat, error) {
	f.record("NewTutorChat")
	return &fakeChat{}, nil
}

func (f *fakeGateway) GenerateConceptImage(ctx context.Context, concept string) (string, error) {
	f.record("GenerateConceptImage")
	if f.image == nil {
		return gateway.EncodeDataURI("image/png", []byte(concept)), nil
	}
	return f.image(ctx, concept)
}

func (f *fakeGateway) EditConceptImage(ctx context.Context, image, instruction string) (string, error) {
	f.record("EditConceptImage")
	if f.edit == nil {
		return gateway.EncodeDataURI("image/png", []byte("edited")), nil
	}
	return f.edit(ctx, image, instruction)
}

func (f *fakeGateway) GenerateConceptVideo(ctx context.Context, concept string) (*gateway.VideoHandle, error) {
	f.record("GenerateConceptVideo")
	if f.video == nil {
		return &gateway.VideoHandle{Path: "/tmp/" + concept + ".mp4", MIMEType: "video/mp4"}, nil
	}
	return f.video(ctx, concept)
}

func (f *fakeGateway) ConnectVoiceTutor(ctx context.Context, h gateway.VoiceHandlers) (gateway.VoiceSession, error) {
	f.record("ConnectVoiceTutor")
	return f.voice(ctx, h)
}

type fakeChat struct {
	mu     sync.Mutex
	sent   []string
	send   func(ctx context.Context, msg string) (string, error)
	closed bool
}

func (c *fakeChat) Send(ctx context.Context, msg string) (string, error) {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	send := c.send
	c.mu.Unlock()
	if send == nil {
		return "echo: " + msg, nil
	}
	return send(ctx, msg)
}

func (c *fakeChat) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChat) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fakeVoice 记录发送的文本，Close 时像真实会话一样触发 OnClose
type fakeVoice struct {
	mu       sync.Mutex
	handlers gateway.VoiceHandlers
	texts    []string
	closes   int
}

func (v *fakeVoice) SendText(ctx context.Context, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.texts = append(v.texts, text)
	return nil
}

func (v *fakeVoice) SendAudio(ctx context.Context, pcm []byte) error { return nil }

func (v *fakeVoice) Close() error {
	v.mu.Lock()
	v.closes++
	first := v.closes == 1
	onClose := v.handlers.OnClose
	v.mu.Unlock()
	if first && onClose != nil {
		onClose()
	}
	return nil
}

// recordingSleeper 不真正睡眠
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

// sequentialTokens 可预测的令牌，便于断言
func sequentialTokens() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "tok-" + strconv.Itoa(n)
	}
}

func newTestOrchestrator(gw gateway.Gateway, chat gateway.TutorChat) (*Orchestrator, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	o := New(gw, chat, Options{
		Sleeper:    sleeper,
		RemoveFile: func(string) error { return nil },
	})
	o.newToken = sequentialTokens()
	return o, sleeper
}
