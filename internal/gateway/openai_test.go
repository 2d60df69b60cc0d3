package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	calls   []openai.ChatCompletionNewParams
	replies []string
	err     error
}

func (f *fakeCompleter) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	content := ""
	if len(f.replies) > 0 {
		content = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Content: content},
	}}}, nil
}

func newTestOpenAI(c *fakeCompleter) *OpenAI {
	return newOpenAI(c, OpenAIOptions{Model: "o4-mini", ReasoningEffort: "high"}, logger.NewNop())
}

func TestOpenAIAnalyzeCode(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"explanation":"e","bugs":["off by one"],"improvements":[],"simulatedOutput":"0\n1"}`}}
	o := newTestOpenAI(c)

	result, err := o.AnalyzeCode(context.Background(), "for i in range(2): print(i)")
	require.NoError(t, err)
	assert.Equal(t, []string{"off by one"}, result.Bugs)

	require.Len(t, c.calls, 1)
	params := c.calls[0]
	assert.Equal(t, "o4-mini", params.Model)
	assert.Equal(t, "high", string(params.ReasoningEffort))
	require.NotNil(t, params.ResponseFormat.OfJSONSchema)
	assert.Equal(t, "code_analysis", params.ResponseFormat.OfJSONSchema.JSONSchema.Name)

	raw, err := json.Marshal(params.ResponseFormat.OfJSONSchema.JSONSchema.Schema)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"simulatedOutput"`)
}

func TestOpenAIAnalyzeCode_SchemaViolation(t *testing.T) {
	o := newTestOpenAI(&fakeCompleter{replies: []string{`{"explanation":"e"}`}})

	_, err := o.AnalyzeCode(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrSchemaViolation))
}

func TestOpenAIGenerateLesson(t *testing.T) {
	c := &fakeCompleter{replies: []string{"# Loops"}}
	o := newTestOpenAI(c)

	lesson, err := o.GenerateLesson(context.Background(), "Loops")
	require.NoError(t, err)
	assert.Equal(t, "# Loops", lesson)

	c.err = errors.New("timeout")
	_, err = o.GenerateLesson(context.Background(), "Loops")
	assert.True(t, errors.Is(err, ErrRemote))
}

func TestOpenAIChatKeepsHistoryOnlyOnSuccess(t *testing.T) {
	c := &fakeCompleter{replies: []string{"first reply", ""}}
	o := newTestOpenAI(c)

	chat, err := o.NewTutorChat(context.Background())
	require.NoError(t, err)

	reply, err := chat.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "first reply", reply)

	reply, err = chat.Send(context.Background(), "more")
	require.NoError(t, err)
	assert.Equal(t, ChatFallbackText, reply)
	// system + hi + first reply + more
	assert.Len(t, c.calls[1].Messages, 4)

	c.err = errors.New("down")
	_, err = chat.Send(context.Background(), "lost")
	assert.True(t, errors.Is(err, ErrRemote))

	c.err = nil
	c.replies = []string{"back"}
	_, err = chat.Send(context.Background(), "again")
	require.NoError(t, err)
	// 失败的轮次没有写入历史：system + 两轮对话 + again
	assert.Len(t, c.calls[3].Messages, 6)

	require.NoError(t, chat.Close())
}

type stubGateway struct {
	Gateway
	lessons int
}

func (s *stubGateway) GenerateLesson(ctx context.Context, topic string) (string, error) {
	s.lessons++
	return "gemini lesson", nil
}

func TestWithTextBackend(t *testing.T) {
	full := &stubGateway{}
	assert.Same(t, Gateway(full), WithTextBackend(full, nil))

	c := &fakeCompleter{replies: []string{"openai lesson"}}
	gw := WithTextBackend(full, newTestOpenAI(c))

	lesson, err := gw.GenerateLesson(context.Background(), "Loops")
	require.NoError(t, err)
	assert.Equal(t, "openai lesson", lesson)
	assert.Equal(t, 0, full.lessons)
}
