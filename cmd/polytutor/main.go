package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/Zacy-Sokach/PolyTutor/internal/config"
	"github.com/Zacy-Sokach/PolyTutor/internal/gateway"
	"github.com/Zacy-Sokach/PolyTutor/internal/logger"
	"github.com/Zacy-Sokach/PolyTutor/internal/studio"
	"github.com/Zacy-Sokach/PolyTutor/internal/tui"
	"github.com/Zacy-Sokach/PolyTutor/internal/update"
	"github.com/Zacy-Sokach/PolyTutor/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	Version = "dev"
)

func main() {
	// 处理命令行参数
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-v", "--version":
			fmt.Printf("PolyTutor %s\n", Version)
			os.Exit(0)
		case "-h", "--help":
			printHelp()
			os.Exit(0)
		case "-u", "--check-update":
			if err := checkUpdate(); err != nil {
				fmt.Printf("检查更新失败: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}

	// 添加panic恢复
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("程序发生panic: %v\n", r)
			fmt.Println("堆栈跟踪:")
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	if err := run(); err != nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(err.Error()))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PolyTutor - AI 编程导师")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  polytutor                Start the interactive TUI")
	fmt.Println("  polytutor -v, --version  Show version information")
	fmt.Println("  polytutor -h, --help     Show help information")
	fmt.Println("  polytutor -u, --check-update  Check for a newer release")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GEMINI_API_KEY / GOOGLE_API_KEY / API_KEY  Gemini API key")
	fmt.Println("  OPENAI_API_KEY                             used when provider is openai")
	fmt.Println()
	fmt.Println("Config file: " + utils.GetConfigPathForDisplay())
}

func checkUpdate() error {
	res, err := update.NewChecker().CheckForUpdate(context.Background(), Version)
	if err != nil {
		return err
	}
	if !res.Available {
		fmt.Printf("已是最新版本 %s\n", res.Current)
		return nil
	}
	fmt.Printf("发现新版本 %s（当前 %s）\n下载地址: %s\n", res.Latest, res.Current, res.URL)
	return nil
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return fmt.Errorf("未找到 Gemini API Key：请设置 GEMINI_API_KEY 环境变量，或在 %s 中配置 api_key", utils.GetConfigPathForDisplay())
		}
		return err
	}

	logPath, err := cfg.LogFilePath()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode, logPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("starting", "version", Version, "provider", cfg.Provider, "api_key", maskAPIKey(apiKey))

	ctx := context.Background()
	gw, err := newGateway(ctx, cfg, apiKey, log)
	if err != nil {
		return err
	}

	chat, err := gw.NewTutorChat(ctx)
	if err != nil {
		return fmt.Errorf("创建导师对话失败: %w", err)
	}
	defer func() {
		if err := chat.Close(); err != nil {
			log.Warn("关闭导师对话失败", "error", err)
		}
	}()

	orch := studio.New(gw, chat, studio.Options{
		Logger:             log.With("component", "studio"),
		TranscriptionDelay: cfg.TranscriptionDelay(),
	})
	defer orch.Shutdown()

	exportDir, err := cfg.ExportPath()
	if err != nil {
		return err
	}

	// 检查是否在交互式终端中
	if !isTerminal() {
		fmt.Println("PolyTutor 运行在非交互式模式")
		fmt.Println("请确保在交互式终端中运行以获得完整TUI体验")
		fmt.Printf("当前API Key: %s\n", maskAPIKey(apiKey))
		return nil
	}

	tui.Version = Version
	model := tui.NewModel(orch, tui.Options{
		ExportDir: exportDir,
		Logger:    log.With("component", "tui"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("程序运行错误: %w", err)
	}
	return nil
}

// newGateway 媒体和语音总是走 Gemini，文本类操作按 provider 选择
func newGateway(ctx context.Context, cfg *config.Config, apiKey string, log *logger.Logger) (gateway.Gateway, error) {
	mediaDir, err := utils.GetMediaDir()
	if err != nil {
		return nil, err
	}

	opts := gateway.Options{
		AnalysisModel:  cfg.Models.Analysis,
		LessonModel:    cfg.Models.Lesson,
		ChatModel:      cfg.Models.Chat,
		ImageModel:     cfg.Models.Image,
		ImageEditModel: cfg.Models.ImageEdit,
		VideoModel:     cfg.Models.Video,
		VoiceModel:     cfg.Models.Voice,
		VoiceName:      cfg.VoiceName,
		LessonSearch:   cfg.LessonSearchEnabled(),
		PollInterval:   cfg.PollInterval(),
		VideoTimeout:   cfg.VideoTimeout(),
		MediaDir:       mediaDir,
	}
	gemini, err := gateway.NewGemini(ctx, apiKey, opts, log)
	if err != nil {
		return nil, err
	}
	if cfg.Provider != config.ProviderOpenAI {
		return gemini, nil
	}

	openAIKey, err := cfg.ResolveOpenAIKey()
	if err != nil {
		return nil, err
	}
	text, err := gateway.NewOpenAI(gateway.OpenAIOptions{
		APIKey:          openAIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		Model:           cfg.OpenAI.Model,
		ReasoningEffort: cfg.OpenAIReasoningEffort(),
	}, log)
	if err != nil {
		return nil, err
	}
	return gateway.WithTextBackend(gemini, text), nil
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "***" + key[len(key)-4:]
}
