package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// ChatFallbackText 模型没有返回文本时的占位回复
const ChatFallbackText = "抱歉，我暂时没能生成回复，请换个说法再试一次。"

var errChatClosed = errors.New("对话已关闭")

// NewTutorChat 创建带导师人设的持久对话，调用方负责 Close
func (g *Gemini) NewTutorChat(ctx context.Context) (TutorChat, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(tutorPersona),
		ThinkingConfig:    highThinking(),
	}
	session, err := g.api.CreateChat(ctx, g.opts.ChatModel, cfg)
	if err != nil {
		return nil, remoteErr("NewTutorChat", err)
	}
	return &geminiChat{session: session}, nil
}

// geminiChat 上下文保存在服务端，这里只串行化发送
type geminiChat struct {
	mu      sync.Mutex
	session chatSession
	closed  bool
}

func (c *geminiChat) Send(ctx context.Context, message string) (string, error) {
	const op = "TutorChat.Send"

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", remoteErr(op, errChatClosed)
	}

	resp, err := c.session.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", remoteErr(op, err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return ChatFallbackText, nil
	}
	return text, nil
}

func (c *geminiChat) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.session = nil
	return nil
}
