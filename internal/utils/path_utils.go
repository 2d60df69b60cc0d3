package utils

import (
	"os"
	"path/filepath"
)

const appDirName = "polytutor"

// GetConfigDir 获取跨平台的配置目录
// Windows: %APPDATA%/polytutor
// Linux/macOS: ~/.config/polytutor
func GetConfigDir() (string, error) {
	// 检查是否设置了自定义配置目录
	if configHome := os.Getenv("POLYTUTOR_CONFIG_HOME"); configHome != "" {
		return configHome, nil
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appDirName), nil
	}

	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}

// GetMediaDir 生成的视频等媒体文件的存放目录
func GetMediaDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "media"), nil
}

// GetConfigPathForDisplay 获取用于显示的配置路径字符串
func GetConfigPathForDisplay() string {
	if configHome := os.Getenv("POLYTUTOR_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "config.yaml")
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appDirName, "config.yaml") + " (Windows)"
	}
	return "~/.config/polytutor/config.yaml (Linux/macOS)"
}
