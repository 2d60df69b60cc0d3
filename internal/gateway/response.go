package gateway

import (
	"strings"

	"google.golang.org/genai"
)

// responseText 拼接首个候选中的文本部分，跳过思考内容
// 不用 resp.Text()：它会把告警打印到标准输出，破坏 TUI 画面
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// firstInlineImage 返回响应中第一个内联图片
func firstInlineImage(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mt := p.InlineData.MIMEType
			if mt == "" || strings.HasPrefix(mt, "image/") {
				return p.InlineData
			}
		}
	}
	return nil
}
