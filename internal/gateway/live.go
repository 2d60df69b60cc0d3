package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

const voiceInputMIME = "audio/pcm;rate=16000"

var errVoiceClosed = errors.New("语音会话已关闭")

// ConnectVoiceTutor 打开实时语音会话，入站消息在接收协程中回调 OnMessage
func (g *Gemini) ConnectVoiceTutor(ctx context.Context, handlers VoiceHandlers) (VoiceSession, error) {
	const op = "ConnectVoiceTutor"
	if handlers.OnMessage == nil {
		return nil, malformedErr(op, errors.New("OnMessage 不能为空"))
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.opts.VoiceName},
			},
		},
		SystemInstruction:        systemInstruction(voicePersona),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	session, err := g.api.ConnectLive(ctx, g.opts.VoiceModel, cfg)
	if err != nil {
		if handlers.OnError != nil {
			handlers.OnError(err)
		}
		return nil, remoteErr(op, err)
	}

	v := &voiceSession{session: session, log: g.log}
	v.start(handlers)
	return v, nil
}

type voiceSession struct {
	session liveSession
	group   errgroup.Group
	// sendMu 串行化写 websocket
	sendMu    sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	log       *logger.Logger
}

func (v *voiceSession) start(h VoiceHandlers) {
	if h.OnOpen != nil {
		h.OnOpen()
	}
	v.group.Go(func() error {
		if h.OnClose != nil {
			defer h.OnClose()
		}
		for {
			msg, err := v.session.Receive()
			if err != nil {
				if v.closed.Load() {
					return nil
				}
				if h.OnError != nil {
					h.OnError(remoteErr("VoiceSession.Receive", err))
				}
				return err
			}
			if msg == nil {
				continue
			}
			h.OnMessage(convertLiveMessage(msg))
		}
	})
}

func convertLiveMessage(msg *genai.LiveServerMessage) VoiceMessage {
	out := VoiceMessage{SetupComplete: msg.SetupComplete != nil}
	sc := msg.ServerContent
	if sc == nil {
		return out
	}
	out.TurnComplete = sc.TurnComplete
	out.Interrupted = sc.Interrupted
	if sc.InputTranscription != nil {
		out.InputTranscript = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		out.OutputTranscript = sc.OutputTranscription.Text
	}
	if sc.ModelTurn != nil {
		var text strings.Builder
		for _, p := range sc.ModelTurn.Parts {
			if p == nil {
				continue
			}
			if p.Text != "" && !p.Thought {
				text.WriteString(p.Text)
			}
			if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
				out.Audio = append(out.Audio, p.InlineData.Data...)
				out.AudioMIMEType = p.InlineData.MIMEType
			}
		}
		out.Text = text.String()
	}
	return out
}

// SendText 发送一个完整的文本轮次
func (v *voiceSession) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.closed.Load() {
		return remoteErr("VoiceSession.SendText", errVoiceClosed)
	}
	v.sendMu.Lock()
	defer v.sendMu.Unlock()
	err := v.session.SendClientContent(genai.LiveClientContentInput{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: genai.Ptr(true),
	})
	if err != nil {
		return remoteErr("VoiceSession.SendText", err)
	}
	return nil
}

// SendAudio 发送 16kHz 单声道 PCM 数据块
func (v *voiceSession) SendAudio(ctx context.Context, pcm []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.closed.Load() {
		return remoteErr("VoiceSession.SendAudio", errVoiceClosed)
	}
	v.sendMu.Lock()
	defer v.sendMu.Unlock()
	err := v.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: voiceInputMIME},
	})
	if err != nil {
		return remoteErr("VoiceSession.SendAudio", err)
	}
	return nil
}

// Close 关闭连接并等待接收协程退出；不要在回调内调用
func (v *voiceSession) Close() error {
	v.closeOnce.Do(func() {
		v.closed.Store(true)
		v.closeErr = v.session.Close()
		_ = v.group.Wait()
		v.log.Debug("voice session closed")
	})
	return v.closeErr
}
