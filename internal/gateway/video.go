package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"
)

const maxVideoBytes = 512 << 20

// GenerateConceptVideo 提交视频长任务并轮询直到完成、超时或 ctx 取消
func (g *Gemini) GenerateConceptVideo(ctx context.Context, concept string) (*VideoHandle, error) {
	const op = "GenerateConceptVideo"

	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     "720p",
		AspectRatio:    "16:9",
	}
	operation, err := g.api.GenerateVideos(ctx, g.opts.VideoModel, videoPrompt(concept), cfg)
	if err != nil {
		return nil, remoteErr(op, err)
	}
	if operation == nil {
		return nil, remoteErr(op, errors.New("未返回长任务句柄"))
	}

	deadline := g.now().Add(g.opts.VideoTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	polls := 0
	for !operation.Done {
		if g.now().After(deadline) {
			return nil, remoteErr(op, fmt.Errorf("视频生成超时 (已轮询 %d 次)", polls))
		}
		if err := g.sleeper.Sleep(ctx, g.opts.PollInterval); err != nil {
			return nil, remoteErr(op, err)
		}
		polls++

		next, err := g.api.GetVideosOperation(ctx, operation)
		if err != nil {
			return nil, remoteErr(op, err)
		}
		if next == nil {
			return nil, remoteErr(op, errors.New("轮询返回空结果"))
		}
		operation = next
		g.log.Debug("video operation polled", "operation", operation.Name, "polls", polls, "done", operation.Done)
	}

	if len(operation.Error) > 0 {
		return nil, remoteErr(op, fmt.Errorf("视频任务失败: %v", operation.Error["message"]))
	}

	video := firstVideo(operation)
	if video == nil {
		return nil, nil
	}

	data, mimeType := video.VideoBytes, video.MIMEType
	if len(data) == 0 {
		data, mimeType, err = g.download(ctx, video.URI)
		if err != nil {
			return nil, remoteErr(op, err)
		}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	handle, err := g.writeVideo(data, mimeType)
	if err != nil {
		return nil, remoteErr(op, err)
	}
	handle.SourceURI = video.URI
	g.log.Info("video ready", "path", handle.Path, "size", handle.Size, "polls", polls)
	return handle, nil
}

func firstVideo(op *genai.GenerateVideosOperation) *genai.Video {
	if op.Response == nil {
		return nil
	}
	for _, gv := range op.Response.GeneratedVideos {
		if gv == nil || gv.Video == nil {
			continue
		}
		if gv.Video.URI != "" || len(gv.Video.VideoBytes) > 0 {
			return gv.Video
		}
	}
	return nil
}

// download 带 x-goog-api-key 头下载视频内容
func (g *Gemini) download(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("创建下载请求失败: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("下载视频失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxVideoBytes))
	if err != nil {
		return nil, "", fmt.Errorf("读取视频内容失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(raw)
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, "", &downloadError{StatusCode: resp.StatusCode, Body: body}
	}
	mimeType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	return raw, mimeType, nil
}

// writeVideo 把视频写到本地文件，供外部播放器打开
func (g *Gemini) writeVideo(data []byte, mimeType string) (*VideoHandle, error) {
	dir := g.opts.MediaDir
	if dir == "" {
		dir = os.TempDir()
	}
	path, err := saveMedia(dir, "concept-*"+videoExt(mimeType), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &VideoHandle{Path: path, MIMEType: mimeType, Size: int64(len(data))}, nil
}

// saveMedia 在 dir 下创建文件并写入；任何一步失败都会删除半成品
func saveMedia(dir, pattern string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建媒体目录失败: %w", err)
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("创建视频文件失败: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("写入视频文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("关闭视频文件失败: %w", err)
	}
	return f.Name(), nil
}

func videoExt(mimeType string) string {
	switch mimeType {
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return ".mp4"
	}
}
