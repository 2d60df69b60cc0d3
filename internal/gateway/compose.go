package gateway

import "context"

// WithTextBackend 文本类操作交给 text，媒体和语音仍由 full 处理
func WithTextBackend(full Gateway, text TextBackend) Gateway {
	if text == nil {
		return full
	}
	return &composite{Gateway: full, text: text}
}

type composite struct {
	Gateway
	text TextBackend
}

func (c *composite) AnalyzeCode(ctx context.Context, code string) (*CodeAnalysisResult, error) {
	return c.text.AnalyzeCode(ctx, code)
}

func (c *composite) GenerateLesson(ctx context.Context, topic string) (string, error) {
	return c.text.GenerateLesson(ctx, topic)
}

func (c *composite) NewTutorChat(ctx context.Context) (TutorChat, error) {
	return c.text.NewTutorChat(ctx)
}
