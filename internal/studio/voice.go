package studio

import (
	"context"
	"errors"
	"strings"

	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
)

// ErrVoiceNotConnected 没有打开的语音会话
var ErrVoiceNotConnected = errors.New("语音会话未连接")

// StartVoice 打开语音会话；已有打开的会话时什么也不做
func (o *Orchestrator) StartVoice(ctx context.Context) error {
	o.mu.Lock()
	if o.voiceSession != nil && o.voice.Status == VoiceOpen {
		o.mu.Unlock()
		return nil
	}
	if o.voice.Status == VoiceConnecting {
		o.mu.Unlock()
		return nil
	}
	stale := o.voiceSession
	o.voiceSession = nil
	token := o.newToken()
	o.voiceToken = token
	o.voice = VoiceState{Status: VoiceConnecting}
	o.beginLocked(FlowVoice, "")
	o.mu.Unlock()
	o.started(FlowVoice)

	// 远端断开后留下的旧会话在锁外关闭
	if stale != nil {
		_ = stale.Close()
	}

	session, err := o.gw.ConnectVoiceTutor(ctx, o.voiceHandlers(token))

	o.mu.Lock()
	if err != nil {
		if o.voiceToken == token {
			o.voice.Status = VoiceFailed
			o.voice.LastError = err.Error()
		}
		o.mu.Unlock()
		o.finish(FlowVoice, "", err)
		return err
	}
	if o.voiceToken != token {
		// 连接期间已挂断
		o.mu.Unlock()
		_ = session.Close()
		o.finish(FlowVoice, "", nil)
		return nil
	}
	o.voiceSession = session
	if o.voice.Status == VoiceConnecting {
		o.voice.Status = VoiceOpen
	}
	o.mu.Unlock()
	o.finish(FlowVoice, "", nil)
	return nil
}

// voiceHandlers 回调只更新令牌匹配的会话状态
func (o *Orchestrator) voiceHandlers(token string) gateway.VoiceHandlers {
	return gateway.VoiceHandlers{
		OnOpen: func() {
			o.updateVoice(token, func(v *VoiceState) {
				v.Status = VoiceOpen
			})
		},
		OnMessage: func(msg gateway.VoiceMessage) {
			o.updateVoice(token, func(v *VoiceState) {
				applyVoiceMessage(v, msg)
			})
			o.bus.Publish(NewBaseEvent(EventTypeVoiceMessage, msg))
		},
		OnError: func(err error) {
			o.updateVoice(token, func(v *VoiceState) {
				v.Status = VoiceFailed
				v.LastError = err.Error()
			})
			o.log.Warn("语音会话出错", "flow", string(FlowVoice), "error", err, "kind", string(gateway.KindOf(err)))
		},
		OnClose: func() {
			o.updateVoice(token, func(v *VoiceState) {
				if v.Status != VoiceFailed {
					v.Status = VoiceClosed
				}
				closeOpenLines(v)
			})
		},
	}
}

func (o *Orchestrator) updateVoice(token string, fn func(*VoiceState)) {
	o.mu.Lock()
	if o.voiceToken != token {
		o.mu.Unlock()
		return
	}
	fn(&o.voice)
	o.mu.Unlock()
	o.changed()
}

// applyVoiceMessage 把转写文本追加到对应说话人的未结束行
func applyVoiceMessage(v *VoiceState, msg gateway.VoiceMessage) {
	v.AudioBytes += len(msg.Audio)
	if msg.InputTranscript != "" {
		appendVoiceText(v, RoleUser, msg.InputTranscript)
	}
	out := msg.OutputTranscript
	if out == "" {
		out = msg.Text
	}
	if out != "" {
		appendVoiceText(v, RoleModel, out)
	}
	if msg.TurnComplete || msg.Interrupted {
		closeOpenLines(v)
	}
}

func appendVoiceText(v *VoiceState, speaker Role, text string) {
	n := len(v.Transcript)
	if n > 0 && v.Transcript[n-1].Speaker == speaker && !v.Transcript[n-1].Final {
		v.Transcript[n-1].Text += text
		return
	}
	// 另一方开口时结束上一行
	closeOpenLines(v)
	v.Transcript = append(v.Transcript, VoiceLine{Speaker: speaker, Text: strings.TrimLeft(text, " ")})
}

func closeOpenLines(v *VoiceState) {
	for i := range v.Transcript {
		v.Transcript[i].Final = true
	}
}

// SendVoiceText 在语音会话中发送文本轮次
func (o *Orchestrator) SendVoiceText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	o.mu.Lock()
	session := o.voiceSession
	token := o.voiceToken
	o.mu.Unlock()
	if session == nil {
		return ErrVoiceNotConnected
	}

	o.updateVoice(token, func(v *VoiceState) {
		closeOpenLines(v)
		v.Transcript = append(v.Transcript, VoiceLine{Speaker: RoleUser, Text: text, Final: true})
	})
	if err := session.SendText(ctx, text); err != nil {
		o.logFailure(FlowVoice, "", err)
		return err
	}
	return nil
}

// StopVoice 挂断语音会话；没有会话时什么也不做
func (o *Orchestrator) StopVoice() error {
	o.mu.Lock()
	session := o.voiceSession
	o.voiceSession = nil
	// 作废令牌，Close 期间的回调不再修改状态
	o.voiceToken = ""
	if o.voice.Status == VoiceOpen || o.voice.Status == VoiceConnecting {
		o.voice.Status = VoiceClosed
	}
	closeOpenLines(&o.voice)
	o.mu.Unlock()

	if session == nil {
		o.changed()
		return nil
	}
	err := session.Close()
	o.changed()
	return err
}
