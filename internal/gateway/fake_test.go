package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	"google.golang.org/genai"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// fakeAPI 记录调用并按顺序返回预设结果
type fakeAPI struct {
	mu sync.Mutex

	generateCalls []generateCall
	generateResp  *genai.GenerateContentResponse
	generateErr   error

	videoConfig *genai.GenerateVideosConfig
	videoOps    []*genai.GenerateVideosOperation
	videoErr    error
	pollCalls   int
	onPoll      func()

	chat      *fakeChat
	chatModel string
	chatCfg   *genai.GenerateContentConfig
	chatErr   error

	live      *fakeLive
	liveCfg   *genai.LiveConnectConfig
	liveErr   error
	liveModel string
}

func (f *fakeAPI) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls = append(f.generateCalls, generateCall{model: model, contents: contents, config: config})
	return f.generateResp, f.generateErr
}

func (f *fakeAPI) GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.videoConfig = config
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.nextOp(), nil
}

func (f *fakeAPI) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.pollCalls++
	if f.onPoll != nil {
		f.onPoll()
	}
	return f.nextOp(), nil
}

func (f *fakeAPI) nextOp() *genai.GenerateVideosOperation {
	if len(f.videoOps) == 0 {
		return &genai.GenerateVideosOperation{Name: "operations/pending"}
	}
	op := f.videoOps[0]
	f.videoOps = f.videoOps[1:]
	return op
}

func (f *fakeAPI) CreateChat(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatSession, error) {
	f.chatModel = model
	f.chatCfg = config
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return f.chat, nil
}

func (f *fakeAPI) ConnectLive(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error) {
	f.liveModel = model
	f.liveCfg = config
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	return f.live, nil
}

type fakeChat struct {
	sent  []string
	reply *genai.GenerateContentResponse
	err   error
}

func (c *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, p := range parts {
		c.sent = append(c.sent, p.Text)
	}
	return c.reply, c.err
}

// fakeLive Receive 从通道读取，Close 后返回错误
type fakeLive struct {
	incoming chan *genai.LiveServerMessage
	closed   chan struct{}
	once     sync.Once

	mu       sync.Mutex
	content  []genai.LiveClientContentInput
	realtime []genai.LiveRealtimeInput
}

func newFakeLive() *fakeLive {
	return &fakeLive{
		incoming: make(chan *genai.LiveServerMessage, 8),
		closed:   make(chan struct{}),
	}
}

func (l *fakeLive) Receive() (*genai.LiveServerMessage, error) {
	select {
	case msg, ok := <-l.incoming:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return msg, nil
	case <-l.closed:
		return nil, errors.New("use of closed network connection")
	}
}

func (l *fakeLive) SendClientContent(input genai.LiveClientContentInput) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.content = append(l.content, input)
	return nil
}

func (l *fakeLive) SendRealtimeInput(input genai.LiveRealtimeInput) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.realtime = append(l.realtime, input)
	return nil
}

func (l *fakeLive) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

// countingSleeper 记录等待次数，不真正睡眠
type countingSleeper struct {
	mu     sync.Mutex
	calls  int
	delays []time.Duration
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.delays = append(s.delays, d)
	return nil
}

func (s *countingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ utils.Sleeper = (*countingSleeper)(nil)

func newTestGemini(api apiClient) *Gemini {
	opts := DefaultOptions()
	opts.PollInterval = 10 * time.Second
	return newGemini(api, "test-key", opts, logger.NewNop())
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func imageResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here is your picture"},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			}},
		}},
	}
}
