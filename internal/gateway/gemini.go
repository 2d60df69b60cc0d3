package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	"google.golang.org/genai"
)

// Gemini 基于 google.golang.org/genai 的网关实现
type Gemini struct {
	api     apiClient
	apiKey  string
	http    utils.Doer
	sleeper utils.Sleeper
	now     func() time.Time
	opts    Options
	log     *logger.Logger
}

// NewGemini 创建 Gemini 网关；apiKey 为空时直接失败
func NewGemini(ctx context.Context, apiKey string, opts Options, log *logger.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("缺少 Gemini API Key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: utils.SharedHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("创建 genai 客户端失败: %w", err)
	}
	return newGemini(&realAPIClient{client: client}, apiKey, opts, log), nil
}

func newGemini(api apiClient, apiKey string, opts Options, log *logger.Logger) *Gemini {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.VideoTimeout <= 0 {
		opts.VideoTimeout = def.VideoTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gemini{
		api:     api,
		apiKey:  apiKey,
		http:    utils.SharedHTTPClient(),
		sleeper: utils.TimerSleeper{},
		now:     time.Now,
		opts:    opts,
		log:     log.With("component", "gateway"),
	}
}

func systemInstruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

func highThinking() *genai.ThinkingConfig {
	return &genai.ThinkingConfig{ThinkingLevel: genai.ThinkingLevelHigh}
}

// AnalyzeCode 请求结构化的代码分析
func (g *Gemini) AnalyzeCode(ctx context.Context, code string) (*CodeAnalysisResult, error) {
	const op = "AnalyzeCode"

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(analysisInstruction),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema(),
		ThinkingConfig:    highThinking(),
	}
	resp, err := g.api.GenerateContent(ctx, g.opts.AnalysisModel, genai.Text(analysisPrompt(code)), cfg)
	if err != nil {
		return nil, remoteErr(op, err)
	}

	result, err := decodeAnalysis(responseText(resp))
	if err != nil {
		g.log.Warn("analysis response rejected", "model", g.opts.AnalysisModel, "error", err)
		return nil, err
	}
	return result, nil
}

// GenerateLesson 返回模型生成的 Markdown 课程，不做结构校验
func (g *Gemini) GenerateLesson(ctx context.Context, topic string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if g.opts.LessonSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	resp, err := g.api.GenerateContent(ctx, g.opts.LessonModel, genai.Text(lessonPrompt(topic)), cfg)
	if err != nil {
		return "", remoteErr("GenerateLesson", err)
	}
	return responseText(resp), nil
}

// GenerateConceptImage 生成 16:9 的概念插图
func (g *Gemini) GenerateConceptImage(ctx context.Context, concept string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: "16:9",
			ImageSize:   "1K",
		},
	}
	resp, err := g.api.GenerateContent(ctx, g.opts.ImageModel, genai.Text(imagePrompt(concept)), cfg)
	if err != nil {
		return "", remoteErr("GenerateConceptImage", err)
	}
	blob := firstInlineImage(resp)
	if blob == nil {
		return "", nil
	}
	return EncodeDataURI(blob.MIMEType, blob.Data), nil
}

// EditConceptImage 按指令修改已有插图
func (g *Gemini) EditConceptImage(ctx context.Context, image, instruction string) (string, error) {
	const op = "EditConceptImage"

	mimeType, data, err := DecodeDataURI(image)
	if err != nil {
		return "", malformedErr(op, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
	resp, err := g.api.GenerateContent(ctx, g.opts.ImageEditModel, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", remoteErr(op, err)
	}
	blob := firstInlineImage(resp)
	if blob == nil {
		return "", nil
	}
	return EncodeDataURI(blob.MIMEType, blob.Data), nil
}
