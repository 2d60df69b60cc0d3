package gateway

import (
	"context"

	"google.golang.org/genai"
)

// apiClient 对 genai.Client 的最小抽象，测试中用假实现替换
type apiClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	CreateChat(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatSession, error)
	ConnectLive(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error)
}

// chatSession 服务端保存上下文的多轮对话
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// liveSession 实时双向流
type liveSession interface {
	Receive() (*genai.LiveServerMessage, error)
	SendClientContent(input genai.LiveClientContentInput) error
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Close() error
}

// realAPIClient 包装真实的 genai 客户端
type realAPIClient struct {
	client *genai.Client
}

func (r *realAPIClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return r.client.Models.GenerateContent(ctx, model, contents, config)
}

func (r *realAPIClient) GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return r.client.Models.GenerateVideos(ctx, model, prompt, nil, config)
}

func (r *realAPIClient) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return r.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (r *realAPIClient) CreateChat(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatSession, error) {
	chat, err := r.client.Chats.Create(ctx, model, config, nil)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *realAPIClient) ConnectLive(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error) {
	session, err := r.client.Live.Connect(ctx, model, config)
	if err != nil {
		return nil, err
	}
	return session, nil
}
