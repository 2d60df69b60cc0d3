package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// completer OpenAI Chat Completions 调用的测试接缝
type completer interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openAICompleter struct {
	client openai.Client
}

func (c *openAICompleter) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

// OpenAI 文本类操作的 OpenAI 兼容实现，媒体和语音仍走 Gemini
type OpenAI struct {
	completions     completer
	model           string
	reasoningEffort string
	log             *logger.Logger
}

// OpenAIOptions OpenAI 后端参数
type OpenAIOptions struct {
	APIKey          string
	BaseURL         string
	Model           string
	ReasoningEffort string
}

func NewOpenAI(opts OpenAIOptions, log *logger.Logger) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("缺少 OpenAI API Key")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(utils.SharedHTTPClient()),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	return newOpenAI(&openAICompleter{client: client}, opts, log), nil
}

func newOpenAI(c completer, opts OpenAIOptions, log *logger.Logger) *OpenAI {
	if log == nil {
		log = logger.NewNop()
	}
	return &OpenAI{
		completions:     c,
		model:           opts.Model,
		reasoningEffort: opts.ReasoningEffort,
		log:             log.With("component", "gateway", "provider", "openai"),
	}
}

func (o *OpenAI) params(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: messages,
	}
	if o.reasoningEffort != "" {
		p.ReasoningEffort = shared.ReasoningEffort(o.reasoningEffort)
	}
	return p
}

func firstChoice(resp *openai.ChatCompletion) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

func (o *OpenAI) AnalyzeCode(ctx context.Context, code string) (*CodeAnalysisResult, error) {
	const op = "AnalyzeCode"

	p := o.params([]openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(analysisInstruction),
		openai.UserMessage(analysisPrompt(code)),
	})
	p.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   "code_analysis",
				Strict: openai.Bool(true),
				Schema: analysisJSONSchema(),
			},
		},
	}

	resp, err := o.completions.New(ctx, p)
	if err != nil {
		return nil, remoteErr(op, err)
	}
	return decodeAnalysis(firstChoice(resp))
}

// GenerateLesson Chat Completions 没有搜索增强，只发送课程提示词
func (o *OpenAI) GenerateLesson(ctx context.Context, topic string) (string, error) {
	resp, err := o.completions.New(ctx, o.params([]openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(lessonPrompt(topic)),
	}))
	if err != nil {
		return "", remoteErr("GenerateLesson", err)
	}
	return firstChoice(resp), nil
}

func (o *OpenAI) NewTutorChat(ctx context.Context) (TutorChat, error) {
	return &openAIChat{
		backend: o,
		history: []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(tutorPersona)},
	}, nil
}

// openAIChat 接口无状态，历史保存在本地，只在成功后追加
type openAIChat struct {
	mu      sync.Mutex
	backend *OpenAI
	history []openai.ChatCompletionMessageParamUnion
	closed  bool
}

func (c *openAIChat) Send(ctx context.Context, message string) (string, error) {
	const op = "TutorChat.Send"

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", remoteErr(op, errChatClosed)
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(c.history)+1)
	msgs = append(msgs, c.history...)
	msgs = append(msgs, openai.UserMessage(message))

	resp, err := c.backend.completions.New(ctx, c.backend.params(msgs))
	if err != nil {
		return "", remoteErr(op, err)
	}
	reply := firstChoice(resp)
	if strings.TrimSpace(reply) == "" {
		reply = ChatFallbackText
	}
	c.history = append(msgs, openai.AssistantMessage(reply))
	return reply, nil
}

func (c *openAIChat) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.history = nil
	return nil
}
