package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// 终端能力检测结果
type terminalCapabilities struct {
	supportsColor   bool
	supportsUnicode bool
}

var (
	terminalCaps *terminalCapabilities
	terminalOnce sync.Once
)

type renderCacheItem struct {
	content   string
	timestamp time.Time
	hash      string
}

// 渲染缓存，课程内容在每次状态变化时都会重绘
var (
	renderCache  = make(map[string]renderCacheItem)
	cacheMutex   sync.RWMutex
	cacheMaxAge  = 10 * time.Minute
	cacheMaxSize = 64
)

// simpleHash FNV-1a
func simpleHash(s string) string {
	if len(s) == 0 {
		return ""
	}
	hash := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= 1099511628211
	}
	return fmt.Sprintf("%x", hash)
}

// detectTerminalCapabilities 根据环境变量检测终端能力
func detectTerminalCapabilities() *terminalCapabilities {
	caps := &terminalCapabilities{
		supportsColor:   true,
		supportsUnicode: true,
	}

	if term := os.Getenv("TERM"); term != "" {
		if term == "dumb" {
			caps.supportsColor = false
		}
		if strings.Contains(term, "vt100") || strings.Contains(term, "dumb") {
			caps.supportsUnicode = false
		}
	}
	if os.Getenv("COLORTERM") != "" {
		caps.supportsColor = true
	}
	// NO_COLOR 优先
	if os.Getenv("NO_COLOR") != "" {
		caps.supportsColor = false
	}
	return caps
}

func getTerminalCapabilities() *terminalCapabilities {
	terminalOnce.Do(func() {
		terminalCaps = detectTerminalCapabilities()
	})
	return terminalCaps
}

// RenderMarkdown 带缓存的 Markdown 渲染
func RenderMarkdown(markdown string, width int) string {
	if len(markdown) == 0 {
		return ""
	}
	caps := getTerminalCapabilities()

	contentHash := simpleHash(markdown)
	cacheKey := fmt.Sprintf("%s_%d_%d", contentHash, len(markdown), width)

	cacheMutex.RLock()
	if item, ok := renderCache[cacheKey]; ok {
		if time.Since(item.timestamp) < cacheMaxAge && item.hash == contentHash {
			cacheMutex.RUnlock()
			return item.content
		}
	}
	cacheMutex.RUnlock()

	result := NewMarkdownRenderer(caps.supportsColor).Render(markdown, width)
	if !caps.supportsUnicode {
		result = replaceUnicodeSymbols(result)
	}

	cacheMutex.Lock()
	if len(renderCache) >= cacheMaxSize {
		evictOldest(cacheMaxSize / 5)
	}
	renderCache[cacheKey] = renderCacheItem{
		content:   result,
		timestamp: time.Now(),
		hash:      contentHash,
	}
	cacheMutex.Unlock()

	return result
}

// evictOldest 删除最旧的 n 个条目；必须持有写锁
func evictOldest(n int) {
	if n < 1 {
		n = 1
	}
	keys := make([]string, 0, len(renderCache))
	for k := range renderCache {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return renderCache[keys[i]].timestamp.Before(renderCache[keys[j]].timestamp)
	})
	for i := 0; i < n && i < len(keys); i++ {
		delete(renderCache, keys[i])
	}
}

// replaceUnicodeSymbols 替换 Unicode 符号为 ASCII
func replaceUnicodeSymbols(text string) string {
	return strings.NewReplacer(
		"•", "*",
		"│", "|",
		"─", "-",
		"→", "->",
		"…", "...",
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)
}

// ClearRenderCache 清空渲染缓存
func ClearRenderCache() {
	cacheMutex.Lock()
	renderCache = make(map[string]renderCacheItem)
	cacheMutex.Unlock()
}
