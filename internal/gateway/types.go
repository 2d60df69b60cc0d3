package gateway

import (
	"context"
	"time"
)

// CodeAnalysisResult 代码分析结果，四个字段都是必需的
type CodeAnalysisResult struct {
	Explanation     string   `json:"explanation"`
	Bugs            []string `json:"bugs"`
	Improvements    []string `json:"improvements"`
	SimulatedOutput string   `json:"simulatedOutput"`
}

// VideoHandle 已下载到本地、可直接播放的视频
type VideoHandle struct {
	Path     string
	MIMEType string
	Size     int64
	// SourceURI 远程下载地址，内联返回时为空
	SourceURI string
}

// VoiceMessage 实时语音会话收到的一条消息
type VoiceMessage struct {
	Text             string
	Audio            []byte
	AudioMIMEType    string
	InputTranscript  string
	OutputTranscript string
	TurnComplete     bool
	Interrupted      bool
	SetupComplete    bool
}

// VoiceHandlers 实时语音会话的回调；除 OnMessage 外都可以为空
type VoiceHandlers struct {
	OnOpen    func()
	OnMessage func(VoiceMessage)
	OnError   func(error)
	OnClose   func()
}

// TutorChat 进程级的持久对话，显式创建和关闭
type TutorChat interface {
	Send(ctx context.Context, message string) (string, error)
	Close() error
}

// VoiceSession 打开的实时语音会话句柄，调用方负责 Close
type VoiceSession interface {
	SendText(ctx context.Context, text string) error
	SendAudio(ctx context.Context, pcm []byte) error
	Close() error
}

// TextBackend 文本类操作，可由不同提供方实现
type TextBackend interface {
	AnalyzeCode(ctx context.Context, code string) (*CodeAnalysisResult, error)
	GenerateLesson(ctx context.Context, topic string) (string, error)
	NewTutorChat(ctx context.Context) (TutorChat, error)
}

// Gateway 领域操作到远程生成式服务的边界
type Gateway interface {
	TextBackend

	// GenerateConceptImage 返回 data URI，没有图片时返回空串
	GenerateConceptImage(ctx context.Context, concept string) (string, error)
	// EditConceptImage image 必须是 data URI，没有图片时返回空串
	EditConceptImage(ctx context.Context, image, instruction string) (string, error)
	// GenerateConceptVideo 没有可下载的视频时返回 nil
	GenerateConceptVideo(ctx context.Context, concept string) (*VideoHandle, error)
	ConnectVoiceTutor(ctx context.Context, handlers VoiceHandlers) (VoiceSession, error)
}

// Options Gemini 网关的可调参数
type Options struct {
	AnalysisModel  string
	LessonModel    string
	ChatModel      string
	ImageModel     string
	ImageEditModel string
	VideoModel     string
	VoiceModel     string
	VoiceName      string
	LessonSearch   bool

	PollInterval time.Duration
	VideoTimeout time.Duration
	// MediaDir 视频文件的落盘目录，为空时使用系统临时目录
	MediaDir string
}

// DefaultOptions 默认模型和轮询参数
func DefaultOptions() Options {
	return Options{
		AnalysisModel:  "gemini-3-pro-preview",
		LessonModel:    "gemini-2.5-flash",
		ChatModel:      "gemini-3-pro-preview",
		ImageModel:     "gemini-3-pro-image-preview",
		ImageEditModel: "gemini-2.5-flash-image",
		VideoModel:     "veo-3.1-fast-generate-preview",
		VoiceModel:     "gemini-2.5-flash-native-audio-preview-09-2025",
		VoiceName:      "Zephyr",
		LessonSearch:   true,
		PollInterval:   10 * time.Second,
		VideoTimeout:   10 * time.Minute,
	}
}
