package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	"gopkg.in/yaml.v3"
)

// 支持的文本模型提供方
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrMissingAPIKey 启动时没有可用的凭证
var ErrMissingAPIKey = errors.New("未配置 API Key")

type Config struct {
	APIKey               string       `yaml:"api_key"`
	Provider             string       `yaml:"provider"`
	Models               ModelConfig  `yaml:"models"`
	VoiceName            string       `yaml:"voice_name"`
	LessonSearch         *bool        `yaml:"lesson_search,omitempty"`
	Video                VideoConfig  `yaml:"video"`
	TranscriptionDelayMS int          `yaml:"transcription_delay_ms"`
	ExportDir            string       `yaml:"export_dir"`
	OpenAI               OpenAIConfig `yaml:"openai"`
	Log                  LogConfig    `yaml:"log"`
}

// ModelConfig 各个操作使用的模型
type ModelConfig struct {
	Analysis  string `yaml:"analysis"`
	Lesson    string `yaml:"lesson"`
	Chat      string `yaml:"chat"`
	Image     string `yaml:"image"`
	ImageEdit string `yaml:"image_edit"`
	Video     string `yaml:"video"`
	Voice     string `yaml:"voice"`
}

// VideoConfig 视频长任务轮询参数
type VideoConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	TimeoutMinutes      int `yaml:"timeout_minutes"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// ReasoningEffort 非推理模型需要设置为 none
	ReasoningEffort string `yaml:"reasoning_effort"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
	File string `yaml:"file"`
}

// DefaultModelConfig 默认模型
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Analysis:  "gemini-3-pro-preview",
		Lesson:    "gemini-2.5-flash",
		Chat:      "gemini-3-pro-preview",
		Image:     "gemini-3-pro-image-preview",
		ImageEdit: "gemini-2.5-flash-image",
		Video:     "veo-3.1-fast-generate-preview",
		Voice:     "gemini-2.5-flash-native-audio-preview-09-2025",
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Provider:  ProviderGemini,
		Models:    DefaultModelConfig(),
		VoiceName: "Zephyr",
		Video: VideoConfig{
			PollIntervalSeconds: 10,
			TimeoutMinutes:      10,
		},
		TranscriptionDelayMS: 1500,
		OpenAI: OpenAIConfig{
			Model:           "o4-mini",
			ReasoningEffort: "high",
		},
		Log: LogConfig{
			Mode: "prod",
		},
	}
}

func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults 用默认值填充未设置的字段
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = def.Provider
	}

	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&c.Models.Analysis, def.Models.Analysis)
	fill(&c.Models.Lesson, def.Models.Lesson)
	fill(&c.Models.Chat, def.Models.Chat)
	fill(&c.Models.Image, def.Models.Image)
	fill(&c.Models.ImageEdit, def.Models.ImageEdit)
	fill(&c.Models.Video, def.Models.Video)
	fill(&c.Models.Voice, def.Models.Voice)
	fill(&c.VoiceName, def.VoiceName)
	fill(&c.OpenAI.Model, def.OpenAI.Model)
	fill(&c.OpenAI.ReasoningEffort, def.OpenAI.ReasoningEffort)
	fill(&c.Log.Mode, def.Log.Mode)

	if c.Video.PollIntervalSeconds <= 0 {
		c.Video.PollIntervalSeconds = def.Video.PollIntervalSeconds
	}
	if c.Video.TimeoutMinutes <= 0 {
		c.Video.TimeoutMinutes = def.Video.TimeoutMinutes
	}
	if c.TranscriptionDelayMS <= 0 {
		c.TranscriptionDelayMS = def.TranscriptionDelayMS
	}
}

func SaveConfig(config *Config) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// ResolveAPIKey 按 GEMINI_API_KEY、GOOGLE_API_KEY、API_KEY、配置文件的顺序查找凭证
func (c *Config) ResolveAPIKey() (string, error) {
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	if v := strings.TrimSpace(c.APIKey); v != "" {
		return v, nil
	}
	return "", ErrMissingAPIKey
}

// ResolveOpenAIKey OPENAI_API_KEY 优先于配置文件
func (c *Config) ResolveOpenAIKey() (string, error) {
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(c.OpenAI.APIKey); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("provider=openai: %w", ErrMissingAPIKey)
}

// OpenAIReasoningEffort 返回空串表示不发送 reasoning_effort
func (c *Config) OpenAIReasoningEffort() string {
	effort := strings.ToLower(strings.TrimSpace(c.OpenAI.ReasoningEffort))
	if effort == "none" {
		return ""
	}
	return effort
}

// LessonSearchEnabled 课程生成是否启用搜索增强，默认开启
func (c *Config) LessonSearchEnabled() bool {
	if c.LessonSearch == nil {
		return true
	}
	return *c.LessonSearch
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Video.PollIntervalSeconds) * time.Second
}

func (c *Config) VideoTimeout() time.Duration {
	return time.Duration(c.Video.TimeoutMinutes) * time.Minute
}

func (c *Config) TranscriptionDelay() time.Duration {
	return time.Duration(c.TranscriptionDelayMS) * time.Millisecond
}

// LogFilePath 日志文件路径，TUI 占用终端，日志只能写文件
func (c *Config) LogFilePath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "polytutor.log"), nil
}

// ExportPath 课程导出目录
func (c *Config) ExportPath() (string, error) {
	if c.ExportDir != "" {
		return c.ExportDir, nil
	}
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "exports"), nil
}

func getConfigPath() (string, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
